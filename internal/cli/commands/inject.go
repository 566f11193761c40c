package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch"
	"github.com/lateralusd/machpatch/internal/cli/config"
)

// NewInjectCommand creates the inject command.
func NewInjectCommand() *cobra.Command {
	var (
		out       string
		loadType  string
		stripSign bool
	)

	cmd := &cobra.Command{
		Use:   "inject <binary> <dylib>",
		Short: "Add a load command for a dylib to an executable",
		Long: `Append LC_LOAD_DYLIB, LC_LOAD_WEAK_DYLIB or LC_RPATH to a 64-bit
executable. The result is written to --out; the input is not modified.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lt, err := parseLoadType(loadType)
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + ".patched"
			}

			r, err := machpatch.Inject(args[0], args[1],
				machpatch.WithLoadType(lt),
				machpatch.WithRemoveCodeSig(stripSign),
				machpatch.WithLogger(config.GetLogger(cmd.Context())))
			if err != nil {
				return err
			}

			f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, r); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: <binary>.patched)")
	cmd.Flags().StringVarP(&loadType, "type", "t", "dylib", "Load command type (dylib|weak|rpath)")
	cmd.Flags().BoolVar(&stripSign, "strip-codesig", false, "Remove LC_CODE_SIGNATURE first")

	_ = cmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"dylib", "weak", "rpath"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
