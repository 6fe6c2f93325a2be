package cli

import (
	"github.com/spf13/cobra"

	"github.com/ivlev/lenticular/internal/config"
)

func newPresetsCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Write the built-in presets to a YAML file for hand tuning",
		Long: `Presets dumps the built-in lens and quality presets as a YAML template.
Edit the strip width, oscillation and parallax constants and feed the file
back to bake with --presets.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			if err := config.WritePresets(config.DefaultPresetFile(), out); err != nil {
				return err
			}
			logger.Info("presets written", "path", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "lenticular-presets.yaml", "output YAML path")
	return cmd
}
