// Package overlay stamps optional extras onto baked frames.
package overlay

import (
	"image"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"
)

// StampQR draws a share-link QR code in the bottom-right corner of dst. The
// code is sized to a fifth of the frame width so it stays scannable on the
// basic quality tier without covering the effect.
func StampQR(dst *image.RGBA, link string) error {
	q, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return err
	}

	bounds := dst.Bounds()
	size := bounds.Dx() / 5
	if size < 48 {
		size = 48
	}
	margin := size / 8

	img := q.Image(size)
	qb := img.Bounds()

	x1 := bounds.Max.X - margin
	y1 := bounds.Max.Y - margin
	rect := image.Rect(x1-qb.Dx(), y1-qb.Dy(), x1, y1)
	draw.Draw(dst, rect, img, qb.Min, draw.Over)
	return nil
}
