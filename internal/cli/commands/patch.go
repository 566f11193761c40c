package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch"
	"github.com/lateralusd/machpatch/internal/cli/config"
	"github.com/lateralusd/machpatch/internal/macho"
)

const watchDebounce = 200 * time.Millisecond

// NewPatchCommand creates the patch command.
func NewPatchCommand() *cobra.Command {
	var noInject, watch bool

	cmd := &cobra.Command{
		Use:   "patch <executable>",
		Short: "Convert an executable into a dylib",
		Long: `Rewrite a Mach-O executable in place so it can be loaded with dlopen.

Every slice matching --cpu becomes MH_DYLIB, gets an LC_ID_DYLIB named
after the file and links --library. With --watch the file is patched
again each time it is rebuilt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := patchOptions(cmd)
			if err != nil {
				return err
			}
			opts = append(opts, machpatch.WithInject(!noInject))

			path := args[0]
			patch := func() error {
				if err := machpatch.PatchFile(path, opts...); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "patched %s\n", path)
				return nil
			}
			if err := patch(); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			cfg := config.FromContext(cmd.Context())
			cpu, _ := cfg.CPUType()
			log := config.GetLogger(cmd.Context())
			log.Info("watching for changes", slog.String("path", path))
			return watchFile(cmd.Context(), path, watchDebounce, log, func() error {
				needed, err := needsPatch(path, cpu)
				if err != nil || !needed {
					return err
				}
				return patch()
			})
		},
	}

	cmd.Flags().BoolVar(&noInject, "no-inject", false, "Write a placeholder instead of linking the library")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Patch again whenever the file changes")

	return cmd
}

// needsPatch reports whether some slice of cpu is still an executable.
func needsPatch(path string, cpu macho.CpuType) (bool, error) {
	sum, err := machpatch.Describe(path)
	if err != nil {
		return false, err
	}
	for _, s := range sum.Slices {
		if s.CPU == cpu && s.Filetype == macho.MH_EXECUTE {
			return true, nil
		}
	}
	return false, nil
}

// watchFile calls onChange after path is written or recreated, once writes
// have been quiet for debounce. Errors from onChange are logged.
func watchFile(ctx context.Context, path string, debounce time.Duration, log *slog.Logger, onChange func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: build tools usually replace the file.
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			pending = time.After(debounce)

		case <-pending:
			pending = nil
			log.Debug("file changed", slog.String("path", path))
			if err := onChange(); err != nil {
				log.Error("patch failed", slog.String("path", path), slog.Any("error", err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", slog.Any("error", err))
		}
	}
}
