package machpatch

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lateralusd/machpatch/internal/macho"
)

// Rnd32 rounds v up to a multiple of r. r must be a power of two.
func Rnd32(v, r uint32) uint32 {
	r--
	return (v + r) &^ r
}

// InsertDylibCommand adds a dylib_command for path to s. LC_ID_DYLIB is
// placed in front of every other command and named after the base name of
// path; all other commands are appended.
func InsertDylibCommand(s *Slice, cmd macho.Cmd, path string) error {
	name := path
	if cmd == macho.LC_ID_DYLIB {
		name = filepath.Base(path)
	}

	cmdSize := dylibCommandSize(name)
	start := s.HeaderSize()
	end := s.commandsEnd()
	if end+cmdSize > len(s.data) || !macho.IsZero(s.data[end:end+cmdSize]) {
		return fmt.Errorf("%w: %s needs %d bytes", ErrNotEnoughSpace, cmd, cmdSize)
	}

	at := end
	if cmd == macho.LC_ID_DYLIB {
		at = start
		copy(s.data[start+cmdSize:], s.data[start:end])
		clear(s.data[start : start+cmdSize])
	}

	if err := s.encode(at, macho.LoadHeader{Cmd: cmd, Size: uint32(cmdSize)}, newDylib()); err != nil {
		return err
	}
	copy(s.data[at+macho.DylibCmdSize:at+cmdSize], name)

	s.Header.NCmds++
	s.Header.SizeOfCmds += uint32(cmdSize)
	return s.writeHeader()
}

func dylibCommandSize(name string) int {
	return macho.DylibCmdSize + int(Rnd32(uint32(len(name)+1), 8))
}

// PatchExecSlice turns the executable image in s into a dylib that can be
// loaded with dlopen: the header is rewritten, __PAGEZERO shrunk to one
// page, the configured library linked and an LC_ID_DYLIB added. With
// doInject false the library command is written as a placeholder dyld
// ignores.
func PatchExecSlice(path string, s *Slice, doInject bool, opts ...Option) error {
	c := configFromOpts(opts...)
	log := c.logger.With(slog.String("path", path), slog.Int64("offset", s.Offset))

	cmds, err := s.Commands()
	if err != nil {
		return err
	}
	if len(cmds) == 0 {
		return ErrUnexpectedCommand
	}

	first := cmds[0]
	if first.Cmd != macho.LC_SEGMENT_64 && first.Cmd != macho.LC_ID_DYLIB {
		return fmt.Errorf("%w: got %s", ErrUnexpectedCommand, first.Cmd)
	}

	libCmd := macho.LC_PLACEHOLDER_DYLIB
	if doInject {
		libCmd = macho.LC_LOAD_DYLIB
	}

	var (
		hasID       bool
		linked      bool
		placeholder *Command
	)
	for i, ld := range cmds {
		switch ld.Cmd {
		case macho.LC_ID_DYLIB:
			hasID = true
		case macho.LC_PLACEHOLDER_DYLIB:
			placeholder = &cmds[i]
		}
		if ld.Cmd == libCmd {
			if name, err := s.DylibName(ld); err == nil && name == c.library {
				linked = true
			}
		}
	}

	// Check room for everything before touching anything.
	if placeholder != nil {
		if err := checkDylibName(s, *placeholder, c.library); err != nil {
			return err
		}
	}
	var need int
	if placeholder == nil && !linked {
		need += dylibCommandSize(c.library)
	}
	if !hasID {
		need += dylibCommandSize(filepath.Base(path))
	}
	if end := s.commandsEnd(); end+need > len(s.data) || !macho.IsZero(s.data[end:end+need]) {
		return fmt.Errorf("%w: need %d bytes after load commands", ErrNotEnoughSpace, need)
	}

	if first.Cmd == macho.LC_SEGMENT_64 {
		if err := shrinkPageZero(s, first, log); err != nil {
			return err
		}
	}

	// Only native little-endian 64-bit images become dylibs.
	if s.Is64() && s.ByteOrder() == binary.LittleEndian {
		s.Header.Filetype = macho.MH_DYLIB
		s.Header.Flags |= macho.MH_NO_REEXPORTED_DYLIBS
		s.Header.Flags &^= macho.MH_PIE
		if err := s.writeHeader(); err != nil {
			return err
		}
	}

	// The library command goes first: LC_ID_DYLIB shifts every offset.
	switch {
	case placeholder != nil:
		if err := rewriteDylibCommand(s, *placeholder, libCmd, c.library); err != nil {
			return err
		}
		log.Debug("rewrote placeholder", slog.String("cmd", libCmd.String()), slog.String("library", c.library))
	case linked:
		log.Debug("library already linked", slog.String("library", c.library))
	default:
		if err := InsertDylibCommand(s, libCmd, c.library); err != nil {
			return err
		}
		log.Debug("inserted library command", slog.String("cmd", libCmd.String()), slog.String("library", c.library))
	}

	if !hasID {
		if err := InsertDylibCommand(s, macho.LC_ID_DYLIB, path); err != nil {
			return err
		}
		log.Debug("inserted LC_ID_DYLIB", slog.String("name", filepath.Base(path)))
	}
	return nil
}

func shrinkPageZero(s *Slice, c Command, log *slog.Logger) error {
	var seg macho.Segment64
	if err := s.decode(c.Offset+macho.LoadHeaderLen, &seg); err != nil {
		return err
	}
	if seg.VMAddr != 0 {
		return nil
	}
	if seg.VMSize != macho.PageZeroVMSize {
		return fmt.Errorf("%w: vmsize %#x", ErrUnexpectedPageZero, seg.VMSize)
	}
	seg.VMAddr = macho.PageZeroVMSize - macho.PageSize16K
	seg.VMSize = macho.PageSize16K
	log.Debug("shrunk __PAGEZERO", slog.String("segment", macho.CString(seg.SegName[:])))
	return s.encode(c.Offset+macho.LoadHeaderLen, seg)
}

func checkDylibName(s *Slice, c Command, name string) error {
	var dl macho.Dylib
	if err := s.decode(c.Offset+macho.LoadHeaderLen, &dl); err != nil {
		return err
	}
	if dl.Name < macho.DylibCmdSize || int(dl.Name)+len(name)+1 > int(c.Size) {
		return fmt.Errorf("%w: %q does not fit in %s", ErrNotEnoughSpace, name, c.Cmd)
	}
	return nil
}

func rewriteDylibCommand(s *Slice, c Command, cmd macho.Cmd, name string) error {
	if err := checkDylibName(s, c, name); err != nil {
		return err
	}
	var dl macho.Dylib
	if err := s.decode(c.Offset+macho.LoadHeaderLen, &dl); err != nil {
		return err
	}
	if err := s.encode(c.Offset, macho.LoadHeader{Cmd: cmd, Size: c.Size}); err != nil {
		return err
	}
	field := s.data[c.Offset+int(dl.Name) : c.Offset+int(c.Size)]
	clear(field)
	copy(field, name)
	return nil
}

// PatchFile converts every slice of the configured CPU type in the file at
// path into a dylib, linking the configured library.
func PatchFile(path string, opts ...Option) error {
	c := configFromOpts(opts...)

	var patched int
	err := ParseFile(path, func(p string, s *Slice) error {
		if s.CPU() != c.cpu {
			c.logger.Debug("skipping slice", slog.String("cpu", s.CPU().String()), slog.Int64("offset", s.Offset))
			return nil
		}
		patched++
		return PatchExecSlice(p, s, c.inject, opts...)
	})
	if err != nil {
		return err
	}
	if patched == 0 {
		return fmt.Errorf("%w: %s", ErrNoMatchingSlice, c.cpu)
	}
	c.logger.Info("patched", slog.String("path", path), slog.Int("slices", patched))
	return nil
}
