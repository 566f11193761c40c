// Package cli wires the machpatch command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch/internal/cli/commands"
	"github.com/lateralusd/machpatch/internal/cli/config"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCmd creates the root command. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "machpatch",
		Short: "Patch Mach-O executables into loadable dylibs",
		Long: `machpatch rewrites Mach-O executables so they can be loaded with dlopen,
injects load commands, retargets LC_BUILD_VERSION platforms and replaces
byte patterns. It also ships small payloads (repl, serve, run) used to
check patched programs.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = config.WithConfig(ctx, cfg)
			ctx = config.WithLogger(ctx, config.NewLogger(cfg, cmd.ErrOrStderr()))
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultConfigFile+")")
	pf.String("library", "", "Library linked into patched dylibs")
	pf.String("cpu", "", "CPU type of the slices to patch (arm64|x86_64|arm|x86)")
	pf.String("platform", "", "Platform for the platform command (name or number)")
	pf.String("output-dir", "", "Directory for generated files")
	pf.String("addr", "", "Listen address for serve")
	pf.String("history-file", "", "History file for repl")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("cpu", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"arm64", "x86_64", "arm", "x86"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("platform", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"macos", "ios", "tvos", "watchos", "maccatalyst", "iossimulator"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewPatchCommand())
	rootCmd.AddCommand(commands.NewPlatformCommand())
	rootCmd.AddCommand(commands.NewInjectCommand())
	rootCmd.AddCommand(commands.NewReplaceCommand())
	rootCmd.AddCommand(commands.NewBundleCommand())
	rootCmd.AddCommand(commands.NewInfoCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewReplCommand())
	rootCmd.AddCommand(commands.NewRunCommand())

	return rootCmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
