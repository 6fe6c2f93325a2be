// Package normalize bounds raw source images to a predictable sampling cost:
// fixed 3:4 aspect, capped resolution, lossy re-encode at a fixed quality.
// Both compositors read the resulting ImageSet; only this package creates it.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
)

const (
	MinImages = 2
	MaxImages = 5

	// Target aspect ratio width:height. The external crop stage already
	// constrains inputs to this; a center crop here guards against drift.
	AspectW = 3
	AspectH = 4

	jpegQuality = 85

	placeholderW = 600
	placeholderH = 800
)

// ErrImageCount rejects sets outside [MinImages, MaxImages] before any
// decoding work starts.
var ErrImageCount = errors.New("image count out of range")

// ImageSet is an ordered, immutable set of normalized images. Order is
// significant: it defines the left-to-right index progression of the effect.
// The set is read-only once built and safe for concurrent reads.
type ImageSet struct {
	images      []*image.RGBA
	encoded     [][]byte
	placeholder []bool
}

func (s *ImageSet) Len() int { return len(s.images) }

// Image returns the decoded pixels of image i. Callers must treat the result
// as read-only.
func (s *ImageSet) Image(i int) *image.RGBA { return s.images[i] }

// Images returns the ordered decoded images for rendering. The slice and its
// entries are read-only.
func (s *ImageSet) Images() []*image.RGBA { return s.images }

// EncodedJPEG returns the bounded, re-encoded bytes of image i.
func (s *ImageSet) EncodedJPEG(i int) []byte { return s.encoded[i] }

// IsPlaceholder reports whether image i failed to decode and was substituted
// with a deterministic swatch.
func (s *ImageSet) IsPlaceholder(i int) bool { return s.placeholder[i] }

// Normalize builds an ImageSet from 2-5 raw image buffers. Each image is
// independently center-cropped to 3:4, scaled down (never up) so its larger
// dimension does not exceed maxDim, and re-encoded as JPEG; sampling later
// reads the re-encoded pixels, so what you bake is what was bounded.
//
// A buffer that fails to decode becomes a flat-color placeholder hashed from
// its position instead of failing the whole set.
func Normalize(raw [][]byte, maxDim int) (*ImageSet, error) {
	if len(raw) < MinImages || len(raw) > MaxImages {
		return nil, fmt.Errorf("%w: got %d, want %d..%d", ErrImageCount, len(raw), MinImages, MaxImages)
	}
	if maxDim <= 0 {
		return nil, fmt.Errorf("%w: max dimension %d", ErrImageCount, maxDim)
	}

	set := &ImageSet{
		images:      make([]*image.RGBA, len(raw)),
		encoded:     make([][]byte, len(raw)),
		placeholder: make([]bool, len(raw)),
	}

	for i, buf := range raw {
		src, _, err := image.Decode(bytes.NewReader(buf))
		if err != nil {
			src = Placeholder(i)
			set.placeholder[i] = true
		}

		rgba := toRGBA(src)
		rgba = cropAspect(rgba)
		rgba = scaleDown(rgba, maxDim)

		enc, err := encodeJPEG(rgba)
		if err != nil {
			// Encoding an in-memory RGBA only fails on a broken writer;
			// fall back to the unencoded pixels.
			set.images[i] = rgba
			set.encoded[i] = nil
			continue
		}

		dec, err := jpeg.Decode(bytes.NewReader(enc))
		if err != nil {
			set.images[i] = rgba
		} else {
			set.images[i] = toRGBA(dec)
		}
		set.encoded[i] = enc
	}

	return set, nil
}

// Placeholder returns the deterministic flat-color swatch for a source image
// at the given position. The hue walks the color wheel in golden-angle steps
// so neighboring positions stay visually distinct.
func Placeholder(position int) *image.RGBA {
	hue := math.Mod(float64(position)*137.5, 360)
	c := colorful.Hsv(hue, 0.45, 0.92)

	img := image.NewRGBA(image.Rect(0, 0, placeholderW, placeholderH))
	r := uint8(c.R*255 + 0.5)
	g := uint8(c.G*255 + 0.5)
	b := uint8(c.B*255 + 0.5)
	for off := 0; off < len(img.Pix); off += 4 {
		img.Pix[off+0] = r
		img.Pix[off+1] = g
		img.Pix[off+2] = b
		img.Pix[off+3] = 0xff
	}
	return img
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Rect, src, bounds.Min, draw.Src)
	return dst
}

// cropAspect center-crops to exactly 3:4. Inputs are expected to arrive at
// that ratio already, so the crop is usually a few pixels of rounding slack.
func cropAspect(src *image.RGBA) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	targetW, targetH := w, h

	if w*AspectH > h*AspectW {
		targetW = h * AspectW / AspectH
	} else if w*AspectH < h*AspectW {
		targetH = w * AspectH / AspectW
	}
	if targetW == w && targetH == h {
		return src
	}

	x0 := (w - targetW) / 2
	y0 := (h - targetH) / 2
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Rect, src, image.Pt(src.Rect.Min.X+x0, src.Rect.Min.Y+y0), draw.Src)
	return dst
}

// scaleDown resamples so the larger dimension fits maxDim, preserving aspect.
// Images already inside the cap pass through untouched; nothing is ever
// scaled up.
func scaleDown(src *image.RGBA, maxDim int) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	larger := w
	if h > larger {
		larger = h
	}
	if larger <= maxDim {
		return src
	}

	scale := float64(maxDim) / float64(larger)
	dw := int(math.Round(float64(w) * scale))
	dh := int(math.Round(float64(h) * scale))
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Rect, src, src.Rect, xdraw.Src, nil)
	return dst
}

func encodeJPEG(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
