package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/lenticular/internal/baker"
	"github.com/ivlev/lenticular/internal/config"
	"github.com/ivlev/lenticular/internal/normalize"
	"github.com/ivlev/lenticular/internal/source"
	"github.com/ivlev/lenticular/internal/system"
)

func newBakeCmd() *cobra.Command {
	cfg := config.Config{}
	var dpi float64

	cmd := &cobra.Command{
		Use:   "bake",
		Short: "Bake the lenticular effect into an animated GIF",
		Long: `Bake renders one full tilt sweep (negative extreme to positive and back)
over the source images and encodes the frames as an animated GIF. The input
is a directory of 2-5 images, an ordered list of image files, or a PDF whose
pages become the layers.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			set, err := loadImageSet(cmd, cfg.InputPath, args, dpi)
			if err != nil {
				return err
			}

			quality, err := config.QualityByName(cfg.Quality)
			if err != nil {
				return err
			}

			var pf *config.PresetFile
			if cfg.PresetFile != "" {
				pf, err = config.ReadPresets(cfg.PresetFile)
				if err != nil {
					return fmt.Errorf("reading presets: %w", err)
				}
			}
			lensParams, err := config.LensByName(pf, cfg.Lens)
			if err != nil {
				return err
			}

			logger.Debug("bake parameters",
				"frames", cfg.FrameCount,
				"duration", cfg.Duration,
				"quality", quality.Name,
				"size", fmt.Sprintf("%dx%d", quality.Width, quality.Height),
				"strip_width", lensParams.StripWidth,
			)

			track := newProgress(logger)
			art, err := baker.Bake(cmd.Context(), set, baker.Options{
				FrameCount: cfg.FrameCount,
				Duration:   cfg.Duration,
				Quality:    quality,
				Lens:       lensParams,
				QRLink:     cfg.QRLink,
				Workers:    cfg.Workers,
				OnProgress: func(frac float64) {
					printProgress("baking", frac)
				},
			})
			clearProgress()
			if err != nil {
				return err
			}

			out := cfg.OutputPath
			if out == "" {
				out = "lenticular.gif"
			}
			if err := os.WriteFile(out, art.Bytes, 0644); err != nil {
				return err
			}

			track.done(fmt.Sprintf("baked %s: %d frames, %dms/frame, %d bytes", out, art.FrameCount, art.DelayMS, len(art.Bytes)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.InputPath, "input", "i", "", "image directory or PDF (alternatively pass image files as args)")
	cmd.Flags().StringVarP(&cfg.OutputPath, "output", "o", "", "output GIF path (default lenticular.gif)")
	cmd.Flags().IntVarP(&cfg.FrameCount, "frames", "n", 24, "number of baked frames")
	cmd.Flags().Float64VarP(&cfg.Duration, "duration", "d", 2.5, "animation duration in seconds")
	cmd.Flags().StringVarP(&cfg.Quality, "quality", "q", "basic", "quality preset: basic, high")
	cmd.Flags().StringVarP(&cfg.Lens, "lens", "l", "standard", "lens preset: fine, standard, coarse, wide")
	cmd.Flags().StringVar(&cfg.QRLink, "qr-link", "", "stamp a share-link QR code on every frame")
	cmd.Flags().StringVar(&cfg.PresetFile, "presets", "", "YAML preset file overriding the built-in lens presets")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 0, "frame render workers (0 = auto from host tier)")
	cmd.Flags().Float64Var(&dpi, "dpi", 150, "render DPI for PDF sources")

	return cmd
}

// loadImageSet opens the source, reads its layers and normalizes them. It is
// shared by bake and preview.
func loadImageSet(cmd *cobra.Command, input string, args []string, dpi float64) (*normalize.ImageSet, error) {
	logger := loggerFromContext(cmd.Context())

	var src source.Source
	var err error
	switch {
	case len(args) > 0:
		src = source.NewImageListSource(args)
	case input == "":
		return nil, fmt.Errorf("no input: pass --input or 2-5 image files")
	case strings.HasSuffix(strings.ToLower(input), ".pdf"):
		src, err = source.NewFitzPDFSource(input, dpi)
	default:
		src, err = source.NewImageSource(input)
	}
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	if n := src.Count(); n < normalize.MinImages || n > normalize.MaxImages {
		return nil, fmt.Errorf("source has %d layers, want %d..%d", n, normalize.MinImages, normalize.MaxImages)
	}

	raw, err := source.Layers(src)
	if err != nil {
		return nil, fmt.Errorf("reading layers: %w", err)
	}

	tier := system.DetectTier()
	logger.Debug("host tier", "tier", tier.String(), "max_texture", tier.MaxTextureSize())

	set, err := normalize.Normalize(raw, tier.MaxTextureSize())
	if err != nil {
		return nil, err
	}
	for i := 0; i < set.Len(); i++ {
		if set.IsPlaceholder(i) {
			logger.Warn("layer failed to decode, using placeholder swatch", "layer", i)
		}
	}
	return set, nil
}
