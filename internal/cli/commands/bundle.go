package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch/internal/bundle"
	"github.com/lateralusd/machpatch/internal/cli/config"
)

// NewBundleCommand creates the bundle command.
func NewBundleCommand() *cobra.Command {
	var opts bundle.Options

	cmd := &cobra.Command{
		Use:   "bundle <output.app>",
		Short: "Assemble a minimal application bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Logger = config.GetLogger(cmd.Context())
			path, err := bundle.Create(args[0], opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.SourceBundle, "from", "", "Existing .app to copy Info.plist and the executable from")
	cmd.Flags().StringVar(&opts.Executable, "executable", "", "Executable name inside --from (default: bundle name)")
	cmd.Flags().StringVar(&opts.Dylib, "dylib", "", "Dylib to place in Frameworks/")

	return cmd
}
