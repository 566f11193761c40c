package machpatch

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lateralusd/machpatch/internal/macho"
)

// PatchPlatform copies src to dst and rewrites the platform of every
// LC_BUILD_VERSION in the copy. dst is only written once every image
// has been patched. It reports whether any command was rewritten.
func PatchPlatform(src, dst string, platform macho.Platform, opts ...Option) (bool, error) {
	c := configFromOpts(opts...)

	data, err := os.ReadFile(src)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", src, err)
	}

	// Patch the copy in memory so a rejected input never leaves dst behind.
	var found bool
	err = ParseBytes(data, func(_ string, s *Slice) error {
		if !s.Is64() {
			if !s.Fat {
				return fmt.Errorf("%w: %#08x", ErrUnsupportedMagic, uint32(s.Header.Magic))
			}
			c.logger.Warn("skipping 32-bit slice", slog.Int64("offset", s.Offset), slog.String("cpu", s.CPU().String()))
			return nil
		}
		n, err := SetPlatform(s, platform, c.logger)
		if err != nil {
			return err
		}
		found = found || n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if !found {
		c.logger.Warn("no LC_BUILD_VERSION found", slog.String("path", src))
	}

	if err := os.WriteFile(dst, data, 0o755); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := os.Chmod(dst, 0o755); err != nil {
		return found, err
	}
	return found, nil
}

// SetPlatform rewrites every LC_BUILD_VERSION in s and returns how many
// commands it changed.
func SetPlatform(s *Slice, platform macho.Platform, log *slog.Logger) (int, error) {
	cmds, err := s.Commands()
	if err != nil {
		return 0, err
	}
	var n int
	for _, ld := range cmds {
		if ld.Cmd != macho.LC_BUILD_VERSION {
			continue
		}
		var bv macho.BuildVersion
		if err := s.decode(ld.Offset+macho.LoadHeaderLen, &bv); err != nil {
			return n, err
		}
		log.Info("patching platform", slog.String("from", bv.Platform.String()), slog.String("to", platform.String()))
		bv.Platform = platform
		if err := s.encode(ld.Offset+macho.LoadHeaderLen, bv); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
