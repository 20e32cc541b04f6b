// Package cli implements the formfind command-line interface: form finding
// of cable and membrane meshes from JSON mesh files, configured by an
// optional TOML run file.
package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Execute runs the formfind CLI and returns an error if any command fails.
func Execute() error {
	var verbose bool

	root := &cobra.Command{
		Use:          "formfind",
		Short:        "formfind computes equilibrium shapes of cable and membrane meshes",
		Long:         `formfind finds the equilibrium geometry of tension structures with the natural force density method: per-face stress goals and per-edge force goals drive an iterative sparse equilibrium solve.`,
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

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newCheckCmd())

	return root.ExecuteContext(context.Background())
}
