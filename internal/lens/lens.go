// Package lens implements the strip mapping at the heart of the lenticular
// effect: a pure function from horizontal position and tilt to a blended pair
// of source image indices, plus the CPU renderer that applies it across a
// full frame.
package lens

import "math"

// Params holds the tunable constants of the strip mapping. The shipped strip
// widths vary by preset rather than being a single canonical value; finer
// strips read as a more convincing ridge pattern but cost more evaluations
// per frame.
type Params struct {
	// StripWidth is the width of one lenticular strip as a fraction of the
	// output width. Each strip is treated as one ridge.
	StripWidth float64 `yaml:"strip_width"`
	// OscAmplitude perturbs the effective tilt per strip. Without it the
	// effect degenerates into a flat left-right wipe.
	OscAmplitude float64 `yaml:"osc_amplitude"`
	// OscFrequency is the phase advance of the perturbation per strip index,
	// in radians.
	OscFrequency float64 `yaml:"osc_frequency"`
	// Gain amplifies tilt before it is mapped onto the image selector, so the
	// full image range is reachable before the physical tilt extremes.
	Gain float64 `yaml:"gain"`
	// ParallaxGain scales the per-image sampling offset that produces the
	// depth illusion. The offset grows with the signed distance of an image's
	// index from the set midpoint.
	ParallaxGain float64 `yaml:"parallax_gain"`

	// Cosmetic layers. These only touch final colors, never index selection.
	RidgeStrength   float64 `yaml:"ridge_strength"`
	ShimmerStrength float64 `yaml:"shimmer_strength"`
	FringeStrength  float64 `yaml:"fringe_strength"`
	Contrast        float64 `yaml:"contrast"`
}

// StripSample is the result of mapping one column: the two source images to
// blend and the blend weight. It is recomputed fresh every render and never
// stored.
type StripSample struct {
	Strip  int
	Idx1   int
	Idx2   int
	Weight float64
}

// Named presets. The strip widths mirror the ridge densities seen in printed
// lenticular sheets from fine art prints to coarse novelty cards.
var (
	Fine     = preset(0.003)
	Standard = preset(0.005)
	Coarse   = preset(0.008)
	Wide     = preset(0.015)
)

func preset(stripWidth float64) Params {
	return Params{
		StripWidth:      stripWidth,
		OscAmplitude:    0.06,
		OscFrequency:    0.37,
		Gain:            1.15,
		ParallaxGain:    0.012,
		RidgeStrength:   0.10,
		ShimmerStrength: 0.05,
		FringeStrength:  0.35,
		Contrast:        1.06,
	}
}

// ByName resolves a preset name. Unknown names fall back to Standard.
func ByName(name string) (Params, bool) {
	switch name {
	case "fine":
		return Fine, true
	case "standard", "":
		return Standard, true
	case "coarse":
		return Coarse, true
	case "wide":
		return Wide, true
	}
	return Standard, false
}

// MapColumn maps a horizontal position u in [0,1] and a tilt in [-1,1] to a
// strip sample for a set of imageCount images. imageCount must be >= 2; it is
// enforced upstream by the normalizer.
//
// The mapping is pure: identical inputs always produce identical outputs, and
// columns have no ordering dependency between each other.
func (p Params) MapColumn(u, tilt float64, imageCount int) StripSample {
	u = clamp(u, 0, 1)
	tilt = clamp(tilt, -1, 1)

	strip := int(u / p.StripWidth)
	perturbed := tilt*p.Gain + math.Sin(float64(strip)*p.OscFrequency)*p.OscAmplitude
	perturbed = clamp(perturbed, -1, 1)

	last := imageCount - 1
	selector := (perturbed + 1) * 0.5 * float64(last)

	idx1 := int(math.Floor(selector))
	idx2 := int(math.Ceil(selector))
	if idx1 < 0 {
		idx1 = 0
	}
	if idx1 > last {
		idx1 = last
	}
	if idx2 < 0 {
		idx2 = 0
	}
	if idx2 > last {
		idx2 = last
	}

	return StripSample{
		Strip:  strip,
		Idx1:   idx1,
		Idx2:   idx2,
		Weight: selector - math.Floor(selector),
	}
}

// Selector exposes the continuous image selector in [0, imageCount-1] before
// floor/ceil splitting. Useful for monotonicity checks and debugging.
func (p Params) Selector(u, tilt float64, imageCount int) float64 {
	u = clamp(u, 0, 1)
	tilt = clamp(tilt, -1, 1)
	strip := int(u / p.StripWidth)
	perturbed := clamp(tilt*p.Gain+math.Sin(float64(strip)*p.OscFrequency)*p.OscAmplitude, -1, 1)
	return (perturbed + 1) * 0.5 * float64(imageCount-1)
}

// ParallaxOffset returns the horizontal sampling offset for image idx out of
// imageCount at the given tilt, as a fraction of the image width. Images
// further from the set midpoint shift more, which reads as depth.
func (p Params) ParallaxOffset(idx, imageCount int, tilt float64) float64 {
	mid := float64(imageCount-1) / 2
	return tilt * p.ParallaxGain * (float64(idx) - mid)
}

// Smoothstep is the Hermite blend applied to strip weights before mixing.
func Smoothstep(t float64) float64 {
	t = clamp(t, 0, 1)
	return t * t * (3 - 2*t)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
