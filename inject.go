package machpatch

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lateralusd/machpatch/internal/macho"
)

// Inject adds a load command for dylibPath to the executable at binaryPath
// and returns the patched image. The file itself is not modified.
func Inject(binaryPath, dylibPath string, opts ...Option) (io.Reader, error) {
	c := configFromOpts(opts...)
	c.dylibPath = dylibPath

	data, err := os.ReadFile(binaryPath)
	if err != nil {
		return nil, err
	}

	s, err := newSlice(data, 0)
	if err != nil {
		return nil, err
	}
	if !s.Is64() {
		return nil, fmt.Errorf("%w: %#08x", ErrUnsupportedMagic, uint32(s.Header.Magic))
	}
	if s.Filetype() != macho.MH_EXECUTE {
		return nil, ErrNotExecute
	}

	var loadHeader macho.LoadHeader
	switch c.loadType {
	case DYLIB:
		loadHeader.Cmd = macho.LC_LOAD_DYLIB
	case WEAK:
		loadHeader.Cmd = macho.LC_LOAD_WEAK_DYLIB
	case RPATH:
		loadHeader.Cmd = macho.LC_RPATH
	default:
		return nil, ErrTypeNotSupported
	}

	end := len(data)
	if c.removeCodeSig {
		sigSize, err := c.stripCodeSignature(s)
		if err != nil {
			return nil, err
		}
		end -= int(sigSize)
	}

	loadHeader.Size = c.getCmdSize()

	off := s.commandsEnd()
	if off+int(loadHeader.Size) > end || !macho.IsZero(data[off:off+int(loadHeader.Size)]) {
		return nil, ErrNotEnoughSpace
	}

	if err := c.writeLoad(s, off, loadHeader); err != nil {
		return nil, err
	}

	s.Header.NCmds += 1
	s.Header.SizeOfCmds += loadHeader.Size
	if err := s.writeHeader(); err != nil {
		return nil, err
	}

	c.logger.Info("injected load command",
		slog.String("binary", binaryPath),
		slog.String("cmd", loadHeader.Cmd.String()),
		slog.String("path", dylibPath))

	return bytes.NewReader(data[:end]), nil
}

// stripCodeSignature zeroes LC_CODE_SIGNATURE, which must be the last load
// command, and shrinks __LINKEDIT and the string table so they no longer
// cover the signature blob. It returns the blob size.
func (c *config) stripCodeSignature(s *Slice) (uint32, error) {
	cmds, err := s.Commands()
	if err != nil {
		return 0, err
	}

	var (
		sigCmd *Command
		sig    macho.LinkEditData
	)
	for i, ld := range cmds {
		if ld.Cmd != macho.LC_CODE_SIGNATURE {
			continue
		}
		if i != len(cmds)-1 {
			return 0, ErrNotLastCommand
		}
		if err := s.decode(ld.Offset+macho.LoadHeaderLen, &sig); err != nil {
			return 0, err
		}
		sigCmd = &cmds[i]
	}
	if sigCmd == nil {
		c.logger.Debug("no LC_CODE_SIGNATURE to remove")
		return 0, nil
	}
	// The blob is cut off the end of the file, so nothing may follow it.
	if uint64(sig.DataOff)+uint64(sig.DataSize) != uint64(len(s.data)) {
		return 0, fmt.Errorf("%w: code signature at %#x+%#x does not end the file (size %#x)",
			ErrMalformed, sig.DataOff, sig.DataSize, len(s.data))
	}

	end := sig.DataOff
	for _, ld := range cmds {
		body := ld.Offset + macho.LoadHeaderLen
		switch ld.Cmd {
		case macho.LC_SEGMENT_64:
			var seg macho.Segment64
			if err := s.decode(body, &seg); err != nil {
				return 0, err
			}
			if macho.CString(seg.SegName[:]) != "__LINKEDIT" {
				continue
			}
			seg.FileSize -= min(seg.FileSize, uint64(sig.DataSize))
			if err := s.encode(body, seg); err != nil {
				return 0, err
			}
		case macho.LC_SYMTAB:
			var symtab macho.Symtab
			if err := s.decode(body, &symtab); err != nil {
				return 0, err
			}
			if symtab.StrOff+symtab.StrSize <= end {
				continue
			}
			symtab.StrSize = end - min(end, symtab.StrOff)
			if err := s.encode(body, symtab); err != nil {
				return 0, err
			}
		}
	}

	// write zero in the place where LC_CODE_SIGNATURE was
	clear(s.data[sigCmd.Offset : sigCmd.Offset+int(sigCmd.Size)])
	s.Header.NCmds -= 1
	s.Header.SizeOfCmds -= sigCmd.Size

	c.logger.Debug("removed code signature", slog.Uint64("size", uint64(sig.DataSize)))
	return sig.DataSize, nil
}

func (c *config) getCmdSize() uint32 {
	cmdSize := uint32(macho.LoadHeaderLen)
	cmdSize += uint32(len(padPath(c.dylibPath, 8)))
	switch c.loadType {
	case RPATH:
		cmdSize += 4
	default:
		cmdSize += 16
	}

	return Rnd32(cmdSize, 8)
}

func (c *config) writeLoad(s *Slice, off int, lHeader macho.LoadHeader) error {
	var body any
	var bodySize uint32
	switch c.loadType {
	case RPATH:
		bodySize = 4
		body = macho.Rpath{Name: macho.LoadHeaderLen + bodySize}
	default:
		bodySize = 16
		dl := newDylib()
		dl.Name = macho.LoadHeaderLen + bodySize
		body = dl
	}
	return s.encode(off, lHeader, body, padPath(c.dylibPath, 8))
}
