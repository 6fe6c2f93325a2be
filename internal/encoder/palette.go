package encoder

import (
	"image"
	"image/color"
	"image/color/palette"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// How many pixels to feed the clusterer. Sampling on a stride keeps palette
// building cheap even for the high quality tier.
const paletteSampleTarget = 4096

// buildPalette derives a frame-local palette by k-means clustering a sample
// of the frame's pixels. If clustering cannot produce a usable result (flat
// frames, fewer distinct colors than clusters), it falls back to the stdlib
// Plan9 palette.
func (e GIF) buildPalette(img *image.RGBA) color.Palette {
	k := e.MaxColors
	if k < 2 {
		k = 2
	}
	if k > 256 {
		k = 256
	}

	obs := samplePixels(img)
	if len(obs) <= k {
		return fallbackPalette(k)
	}

	km := kmeans.New()
	cs, err := km.Partition(obs, k)
	if err != nil || len(cs) == 0 {
		return fallbackPalette(k)
	}

	pal := make(color.Palette, 0, len(cs))
	for _, c := range cs {
		center := c.Center
		if len(center) < 3 {
			continue
		}
		pal = append(pal, color.RGBA{
			R: clamp255(center[0]),
			G: clamp255(center[1]),
			B: clamp255(center[2]),
			A: 0xff,
		})
	}
	if len(pal) < 2 {
		return fallbackPalette(k)
	}
	return pal
}

func samplePixels(img *image.RGBA) clusters.Observations {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return nil
	}

	stride := total / paletteSampleTarget
	if stride < 1 {
		stride = 1
	}

	obs := make(clusters.Observations, 0, total/stride+1)
	for i := 0; i < total; i += stride {
		off := i * 4
		obs = append(obs, clusters.Coordinates{
			float64(img.Pix[off]),
			float64(img.Pix[off+1]),
			float64(img.Pix[off+2]),
		})
	}
	return obs
}

func fallbackPalette(k int) color.Palette {
	p := palette.Plan9
	if k < len(p) {
		return color.Palette(p[:k])
	}
	return color.Palette(p)
}

func clamp255(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
