// Package cli implements the lenticular command-line interface.
//
// The engine itself lives under internal/lens, internal/compositor and
// internal/baker; this package is the UI collaborator the engine contracts
// talk about. It supplies the ordered image set and bake parameters, and it
// consumes the baked artifact.
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version, typically
// injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the lenticular CLI and returns an error if any command fails.
func Execute() error {
	var verbose bool

	root := &cobra.Command{
		Use:          "lenticular",
		Short:        "lenticular bakes tilt-card animations from 2-5 images",
		Long:         `lenticular simulates a lens-ridge print: it blends between 2-5 source images per column based on a tilt value, and bakes the oscillating effect into an animated GIF.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("lenticular %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newBakeCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newPresetsCmd())

	return root.ExecuteContext(context.Background())
}
