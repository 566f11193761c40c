package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch"
)

// NewReplaceCommand creates the replace command.
func NewReplaceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replace <file> <pattern> <replacement>",
		Short: "Replace every occurrence of a byte string in a file",
		Long: `Replace every occurrence of pattern with replacement in place.
A shorter replacement is padded with zero bytes; a longer one is rejected.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := machpatch.ReplacePattern(args[0], []byte(args[1]), []byte(args[2]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "replaced %d occurrence(s) in %s\n", n, args[0])
			return nil
		},
	}
}
