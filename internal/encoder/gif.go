// Package encoder turns an ordered stream of composited frames into the
// final shareable artifact. The GIF encoder consumes frames in strict
// generation order, quantizes each to a palette and reports progress as it
// goes, so a bake can surface phase-two percentages while compression runs.
package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
)

// Frame is one composited raster plus its display delay. Index must increase
// by exactly one between consecutive frames on the feed channel.
type Frame struct {
	Index   int
	Image   *image.RGBA
	DelayCS int // GIF delay unit, hundredths of a second
}

// Progress reports frames consumed so far out of the expected total.
type Progress func(done, total int)

// FrameEncoder is the contract between the baker and any artifact encoder:
// ordered frame feed, per-frame progress, terminal success or failure.
type FrameEncoder interface {
	// Encode drains frames until the channel closes or ctx is cancelled and
	// returns the encoded artifact bytes plus their content type.
	Encode(ctx context.Context, frames <-chan Frame, total int, onProgress Progress) ([]byte, string, error)
}

// GIF encodes an animated GIF. Each frame gets its own palette built by
// k-means clustering over a pixel sample, optionally dithered.
type GIF struct {
	MaxColors int
	Dither    bool
}

const MIMEGIF = "image/gif"

func (e GIF) Encode(ctx context.Context, frames <-chan Frame, total int, onProgress Progress) ([]byte, string, error) {
	out := &gif.GIF{}
	next := 0

	for {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case f, ok := <-frames:
			if !ok {
				if next != total {
					return nil, "", fmt.Errorf("frame feed closed after %d of %d frames", next, total)
				}
				var buf bytes.Buffer
				if err := gif.EncodeAll(&buf, out); err != nil {
					return nil, "", err
				}
				return buf.Bytes(), MIMEGIF, nil
			}
			if f.Index != next {
				return nil, "", fmt.Errorf("frame %d arrived out of order, want %d", f.Index, next)
			}

			pal := e.buildPalette(f.Image)
			bounds := f.Image.Bounds()
			pm := image.NewPaletted(bounds, pal)
			if e.Dither {
				draw.FloydSteinberg.Draw(pm, bounds, f.Image, bounds.Min)
			} else {
				draw.Draw(pm, bounds, f.Image, bounds.Min, draw.Src)
			}

			out.Image = append(out.Image, pm)
			out.Delay = append(out.Delay, f.DelayCS)

			next++
			if onProgress != nil {
				onProgress(next, total)
			}
		}
	}
}
