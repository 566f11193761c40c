package commands

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch/internal/cli/config"
	"github.com/lateralusd/machpatch/internal/runner"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <program> [args...]",
		Short: "Run a program in a minimal terminal environment",
		Long: `Start a program with a fixed environment (SHELL=zsh, TERM=dumb, ...)
and forward standard input to it line by line. Put program flags after --.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := config.GetLogger(cmd.Context())
			r := runner.New(runner.Config{
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
				Logger: log,
			})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := r.Start(ctx, args[0], args[1:]...); err != nil {
				return err
			}

			in := cmd.InOrStdin()
			exited := make(chan struct{})
			forwarded := make(chan struct{})
			go func() {
				defer close(forwarded)
				forwardInput(in, r, exited, log)
			}()

			err := r.Wait()
			close(exited)
			// A pending read on a pollable stdin is released by an expired
			// deadline. Other readers end the forwarder on their next line.
			if d, ok := in.(interface{ SetReadDeadline(time.Time) error }); ok {
				if d.SetReadDeadline(time.Now()) == nil {
					<-forwarded
				}
			}
			return err
		},
	}
}

// forwardInput copies lines from in to the program until in ends or the
// program exits. End of input closes the program's stdin.
func forwardInput(in io.Reader, r *runner.Runner, exited <-chan struct{}, log *slog.Logger) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case <-exited:
			return
		default:
		}
		if err := r.SendInput(sc.Text() + "\n"); err != nil {
			log.Debug("input dropped", slog.Any("error", err))
			return
		}
	}
	select {
	case <-exited:
	default:
		_ = r.Stop()
	}
}
