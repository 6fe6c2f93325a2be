package source

import (
	"os"
	"path/filepath"
	"sort"
)

// ImageSource reads layers from image files: either a single directory
// (entries sorted by name) or an explicit ordered file list.
type ImageSource struct {
	paths []string
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				ext := filepath.Ext(entry.Name())
				if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
					paths = append(paths, filepath.Join(path, entry.Name()))
				}
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	return &ImageSource{paths: paths}, nil
}

// NewImageListSource keeps the given file order as the layer order.
func NewImageListSource(paths []string) *ImageSource {
	return &ImageSource{paths: paths}
}

func (s *ImageSource) Count() int {
	return len(s.paths)
}

func (s *ImageSource) Layer(index int) ([]byte, error) {
	return os.ReadFile(s.paths[index])
}

func (s *ImageSource) Close() error {
	return nil
}

// Layers reads every layer in order. Unreadable files surface as errors;
// undecodable content is the normalizer's problem, not ours.
func Layers(s Source) ([][]byte, error) {
	raw := make([][]byte, s.Count())
	for i := range raw {
		buf, err := s.Layer(i)
		if err != nil {
			return nil, err
		}
		raw[i] = buf
	}
	return raw, nil
}
