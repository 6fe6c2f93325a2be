package cli

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/lenticular/internal/compositor"
	"github.com/ivlev/lenticular/internal/config"
	"github.com/ivlev/lenticular/internal/system"
	"github.com/ivlev/lenticular/internal/tilt"
)

func newPreviewCmd() *cobra.Command {
	var (
		input  string
		outDir string
		lensN  string
		steps  int
		dpi    float64
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a tilt sweep through the interactive compositor",
		Long: `Preview drives the interactive compositor with a simulated drag gesture
sweeping from full left tilt to full right tilt, writing each presented frame
as a PNG. Useful for inspecting strip and parallax tuning without a bake.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			set, err := loadImageSet(cmd, input, args, dpi)
			if err != nil {
				return err
			}
			lensParams, err := config.LensByName(nil, lensN)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return err
			}

			tier := system.DetectTier()
			q := config.Basic()
			surface := &pngSurface{dir: outDir}
			comp := compositor.New(surface, q.Width, q.Height, lensParams, tier)
			defer comp.Close()

			drag := tilt.NewDragSource(float64(q.Width))
			comp.SetImageSet(set)

			// The compositor throttles tilt updates to the tier's refresh
			// rate; pace the sweep at half that rate so every sample is
			// accepted.
			interval := 2 * time.Second / time.Duration(tier.MaxTiltRate())
			for i := 0; i < steps; i++ {
				frac := float64(i) / float64(steps-1)
				dx := (frac - 0.5) * float64(q.Width)
				drag.SetDrag(dx)
				comp.SetTiltValue(drag.Tilt())
				time.Sleep(interval)
			}

			logger.Info("preview written", "dir", outDir, "frames", surface.count)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "image directory or PDF (alternatively pass image files as args)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "preview", "directory for preview frames")
	cmd.Flags().StringVarP(&lensN, "lens", "l", "standard", "lens preset: fine, standard, coarse, wide")
	cmd.Flags().IntVar(&steps, "steps", 12, "number of tilt samples across the sweep")
	cmd.Flags().Float64Var(&dpi, "dpi", 150, "render DPI for PDF sources")

	return cmd
}

// pngSurface is a display surface that persists every presented frame. The
// compositor reuses its frame buffer, so Present encodes before returning.
type pngSurface struct {
	dir   string
	count int
}

func (s *pngSurface) Present(frame *image.RGBA) {
	path := filepath.Join(s.dir, fmt.Sprintf("frame_%03d.png", s.count))
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	if err := png.Encode(f, frame); err != nil {
		return
	}
	s.count++
}
