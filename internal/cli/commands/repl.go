package commands

import (
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch/internal/cli/config"
	"github.com/lateralusd/machpatch/internal/console"
)

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Echo each line typed until 'exit'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			in := cmd.InOrStdin()

			if plain || !isTerminal(in) {
				return console.Run(cmd.Context(), console.NewPlainReader(in, out, console.Prompt), out)
			}

			rl, err := console.NewReadline(console.Config{
				HistoryFile: config.FromContext(cmd.Context()).HistoryFile,
				Stdin:       io.NopCloser(in),
				Stdout:      out,
				Completions: []string{"exit"},
			})
			if err != nil {
				return err
			}
			defer func() { _ = rl.Close() }()

			return console.Run(cmd.Context(), rl, out)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Read lines without terminal editing")

	return cmd
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && readline.IsTerminal(int(f.Fd()))
}
