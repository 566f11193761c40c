package commands

import (
	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch/internal/cli/config"
	"github.com/lateralusd/machpatch/internal/webserver"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve a fixed HTML page on every request",
		Long: `Start an HTTP server that answers any request with the same page.
Useful as a payload to check a patched program can still accept connections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			srv := webserver.New(webserver.Config{
				Addr:   cfg.Addr,
				Logger: config.GetLogger(cmd.Context()),
			})
			return srv.Serve(cmd.Context())
		},
	}
}
