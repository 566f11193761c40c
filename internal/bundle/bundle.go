// Package bundle assembles a minimal application bundle around an
// executable and an optional dylib.
package bundle

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	InfoPlist     = "Info.plist"
	FrameworksDir = "Frameworks"
)

type Options struct {
	// SourceBundle is an existing .app whose Info.plist and executable are
	// copied. Optional.
	SourceBundle string
	// Executable is the executable name inside SourceBundle. Defaults to
	// the bundle name without its extension.
	Executable string
	// Dylib is copied into Frameworks/ when set.
	Dylib  string
	Logger *slog.Logger
}

// Create builds the bundle at outputPath, replacing anything already there,
// and returns its path.
func Create(outputPath string, opts Options) (string, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if err := os.RemoveAll(outputPath); err != nil {
		return "", fmt.Errorf("failed to remove existing bundle: %w", err)
	}
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create bundle directory: %w", err)
	}

	if opts.SourceBundle != "" {
		exe := opts.Executable
		if exe == "" {
			exe = strings.TrimSuffix(filepath.Base(opts.SourceBundle), filepath.Ext(opts.SourceBundle))
		}
		if _, err := copyIfExists(filepath.Join(opts.SourceBundle, InfoPlist), filepath.Join(outputPath, InfoPlist), 0o644); err != nil {
			return "", err
		}
		copied, err := copyIfExists(filepath.Join(opts.SourceBundle, exe), filepath.Join(outputPath, exe), 0o755)
		if err != nil {
			return "", err
		}
		if !copied {
			log.Warn("executable not found in source bundle", slog.String("bundle", opts.SourceBundle), slog.String("executable", exe))
		}
	}

	if opts.Dylib != "" {
		frameworks := filepath.Join(outputPath, FrameworksDir)
		if err := os.MkdirAll(frameworks, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", FrameworksDir, err)
		}
		name := filepath.Base(opts.Dylib)
		copied, err := copyIfExists(opts.Dylib, filepath.Join(frameworks, name), 0o755)
		if err != nil {
			return "", err
		}
		if copied {
			log.Info("added dylib to Frameworks", slog.String("dylib", name))
		} else {
			log.Warn("dylib not found", slog.String("path", opts.Dylib))
		}
	}

	log.Info("created bundle", slog.String("path", outputPath))
	return outputPath, nil
}

func copyIfExists(src, dst string, perm os.FileMode) (bool, error) {
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return false, fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return false, err
	}
	return true, os.Chmod(dst, perm)
}
