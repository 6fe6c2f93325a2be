package lens

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Render composites one full frame of the lenticular effect into dst. Every
// column is mapped through MapColumn at the given tilt, the two selected
// source images are sampled with their parallax offsets applied, and the
// cosmetic layers (ridge shading, shimmer, rainbow fringe, contrast) are
// stacked on top of the blended color.
//
// images must be non-empty; entries are read-only and may be shared between
// concurrent Render calls.
func Render(dst *image.RGBA, images []*image.RGBA, tilt float64, p Params) {
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 || len(images) == 0 {
		return
	}
	n := len(images)

	for x := 0; x < w; x++ {
		u := (float64(x) + 0.5) / float64(w)
		s := p.MapColumn(u, tilt, n)
		blend := Smoothstep(s.Weight)

		u1 := clamp(u+p.ParallaxOffset(s.Idx1, n, tilt), 0, 1)
		u2 := clamp(u+p.ParallaxOffset(s.Idx2, n, tilt), 0, 1)

		// Position within the strip, 0 at the left edge, 1 at the right.
		// Drives the ridge and fringe layers.
		frac := u/p.StripWidth - float64(s.Strip)
		edge := math.Pow(math.Abs(frac-0.5)*2, 3)

		ridge := 1 - p.RidgeStrength*edge
		shimmer := p.ShimmerStrength * math.Sin(float64(s.Strip)*p.OscFrequency*2+tilt*3)

		fr, fg, fb := fringeColor(s.Strip, tilt)
		fringeA := p.FringeStrength * edge * 0.2 * math.Abs(tilt)

		img1, img2 := images[s.Idx1], images[s.Idx2]

		for y := 0; y < h; y++ {
			v := (float64(y) + 0.5) / float64(h)

			r1, g1, b1 := sampleAt(img1, u1, v)
			r2, g2, b2 := sampleAt(img2, u2, v)

			r := lerp(r1, r2, blend)
			g := lerp(g1, g2, blend)
			b := lerp(b1, b2, blend)

			r = r*ridge + shimmer
			g = g*ridge + shimmer
			b = b*ridge + shimmer

			r = lerp(r, fr, fringeA)
			g = lerp(g, fg, fringeA)
			b = lerp(b, fb, fringeA)

			r = (r-0.5)*p.Contrast + 0.5
			g = (g-0.5)*p.Contrast + 0.5
			b = (b-0.5)*p.Contrast + 0.5

			off := dst.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			dst.Pix[off+0] = quantize(r)
			dst.Pix[off+1] = quantize(g)
			dst.Pix[off+2] = quantize(b)
			dst.Pix[off+3] = 0xff
		}
	}
}

// fringeColor picks the rainbow sheen hue for a strip. The hue walks the
// wheel with the strip index and drifts with tilt, like light breaking on a
// real lens sheet.
func fringeColor(strip int, tilt float64) (r, g, b float64) {
	hue := math.Mod(float64(strip)*47+tilt*120+360, 360)
	c := colorful.Hsv(hue, 0.8, 1.0)
	return c.R, c.G, c.B
}

// sampleAt reads the pixel nearest to the normalized coordinate (u, v).
// Source images keep their own resolutions; sampling goes through normalized
// coordinates so mixed sizes inside one set stay aligned.
func sampleAt(img *image.RGBA, u, v float64) (r, g, b float64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	x := int(u * float64(w))
	if x >= w {
		x = w - 1
	}
	y := int(v * float64(h))
	if y >= h {
		y = h - 1
	}

	off := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
	return float64(img.Pix[off]) / 255, float64(img.Pix[off+1]) / 255, float64(img.Pix[off+2]) / 255
}

func quantize(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
