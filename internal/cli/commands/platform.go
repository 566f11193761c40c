package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch"
	"github.com/lateralusd/machpatch/internal/cli/config"
)

const defaultPlatformOutput = "patched_exec.dylib"

// NewPlatformCommand creates the platform command.
func NewPlatformCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "platform <source>",
		Short: "Copy a binary and rewrite its LC_BUILD_VERSION platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			platform, err := cfg.PlatformID()
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(cfg.OutputDir, defaultPlatformOutput)
			}

			found, err := machpatch.PatchPlatform(args[0], out, platform,
				machpatch.WithLogger(config.GetLogger(cmd.Context())))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !found {
				_, _ = fmt.Fprintf(w, "no LC_BUILD_VERSION found, copied %s unchanged\n", out)
				return nil
			}
			_, _ = fmt.Fprintf(w, "wrote %s (platform %s)\n", out, platform)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: <output-dir>/"+defaultPlatformOutput+")")

	return cmd
}
