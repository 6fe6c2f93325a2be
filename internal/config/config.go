package config

import (
	"fmt"

	"github.com/ivlev/lenticular/internal/lens"
)

// Config carries everything one CLI invocation needs. Flags fill it in; the
// engine packages read it.
type Config struct {
	InputPath  string
	OutputPath string

	FrameCount int
	Duration   float64 // seconds

	Quality string // quality preset name: basic, high
	Lens    string // lens preset name: fine, standard, coarse, wide

	QRLink     string // optional share link stamped on baked frames
	PresetFile string // optional YAML preset overrides

	Workers int
}

// QualityPreset fixes the baked artifact's output resolution and compression
// knobs. Two tiers suffice: a smaller/faster one and a larger/slower one.
type QualityPreset struct {
	Name      string `yaml:"name"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	MaxColors int    `yaml:"max_colors"`
	Dither    bool   `yaml:"dither"`
}

// Basic is the smaller, faster tier.
func Basic() QualityPreset {
	return QualityPreset{Name: "basic", Width: 480, Height: 640, MaxColors: 128, Dither: false}
}

// High is the larger, slower tier.
func High() QualityPreset {
	return QualityPreset{Name: "high", Width: 768, Height: 1024, MaxColors: 256, Dither: true}
}

// QualityByName resolves a preset name, defaulting to basic for "".
func QualityByName(name string) (QualityPreset, error) {
	switch name {
	case "basic", "":
		return Basic(), nil
	case "high":
		return High(), nil
	}
	return QualityPreset{}, fmt.Errorf("unknown quality preset %q (want basic or high)", name)
}

// LensByName resolves a lens preset, checking a loaded preset file (which
// may be nil) before the built-ins.
func LensByName(f *PresetFile, name string) (lens.Params, error) {
	if f != nil {
		if p, ok := f.Lens[name]; ok {
			return p, nil
		}
	}
	p, ok := lens.ByName(name)
	if !ok {
		return lens.Params{}, fmt.Errorf("unknown lens preset %q", name)
	}
	return p, nil
}
