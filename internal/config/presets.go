package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/lenticular/internal/lens"
)

// PresetFile is the on-disk YAML bundle of tunable presets. It exists so the
// lens constants stay adjustable without a rebuild; the shipped values are
// starting points, not canon.
type PresetFile struct {
	Version string                 `yaml:"version"`
	Lens    map[string]lens.Params `yaml:"lens"`
	Quality []QualityPreset        `yaml:"quality"`
}

// DefaultPresetFile returns the built-in presets, ready to be written out as
// a template for hand tuning.
func DefaultPresetFile() *PresetFile {
	return &PresetFile{
		Version: "1.0",
		Lens: map[string]lens.Params{
			"fine":     lens.Fine,
			"standard": lens.Standard,
			"coarse":   lens.Coarse,
			"wide":     lens.Wide,
		},
		Quality: []QualityPreset{Basic(), High()},
	}
}

// WritePresets writes a preset bundle to a YAML file.
func WritePresets(pf *PresetFile, path string) error {
	data, err := yaml.Marshal(pf)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadPresets reads a preset bundle from a YAML file.
func ReadPresets(path string) (*PresetFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pf PresetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, err
	}

	return &pf, nil
}
