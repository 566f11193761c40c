package machpatch

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/lateralusd/machpatch/internal/macho"
)

// Slice is a single Mach-O image. For universal files it is one
// architecture; for thin files it is the whole file. Writes through the
// slice land directly in the underlying buffer.
type Slice struct {
	Offset int64
	Fat    bool
	Header macho.Header64

	order binary.ByteOrder
	is64  bool
	data  []byte
}

// Command is a load command located inside a slice. Offset is relative to
// the start of the slice.
type Command struct {
	Cmd    macho.Cmd
	Size   uint32
	Offset int
}

func newSlice(data []byte, off int64) (*Slice, error) {
	if len(data) < 4 {
		return nil, ErrNotMachO
	}
	s := &Slice{Offset: off, data: data}
	switch macho.Magic(binary.LittleEndian.Uint32(data)) {
	case macho.M64:
		s.order, s.is64 = binary.LittleEndian, true
	case macho.M32:
		s.order = binary.LittleEndian
	case macho.C64:
		s.order, s.is64 = binary.BigEndian, true
	case macho.C32:
		s.order = binary.BigEndian
	default:
		return nil, ErrNotMachO
	}
	if err := s.readHeader(); err != nil {
		return nil, err
	}
	if s.commandsEnd() > len(data) {
		return nil, fmt.Errorf("%w: load commands exceed image size", ErrMalformed)
	}
	return s, nil
}

func (s *Slice) Is64() bool {
	return s.is64
}

func (s *Slice) HeaderSize() int {
	if s.is64 {
		return macho.Header64Size
	}
	return macho.Header32Size
}

func (s *Slice) CPU() macho.CpuType {
	return s.Header.CpuType
}

func (s *Slice) Filetype() macho.Filetype {
	return s.Header.Filetype
}

func (s *Slice) ByteOrder() binary.ByteOrder {
	return s.order
}

// Bytes returns the image bytes. The slice aliases the mapped file.
func (s *Slice) Bytes() []byte {
	return s.data
}

func (s *Slice) commandsEnd() int {
	return s.HeaderSize() + int(s.Header.SizeOfCmds)
}

// Commands walks the load command table.
func (s *Slice) Commands() ([]Command, error) {
	end := s.commandsEnd()
	off := s.HeaderSize()
	cmds := make([]Command, 0, s.Header.NCmds)
	for i := 0; i < int(s.Header.NCmds); i++ {
		if off+macho.LoadHeaderLen > end {
			return nil, fmt.Errorf("%w: load command %d starts past sizeofcmds", ErrMalformed, i)
		}
		var ld macho.LoadHeader
		if err := s.decode(off, &ld); err != nil {
			return nil, err
		}
		if ld.Size < macho.LoadHeaderLen || off+int(ld.Size) > end {
			return nil, fmt.Errorf("%w: load command %d has bad size %d", ErrMalformed, i, ld.Size)
		}
		cmds = append(cmds, Command{Cmd: ld.Cmd, Size: ld.Size, Offset: off})
		off += int(ld.Size)
	}
	return cmds, nil
}

// DylibName returns the install name stored in a dylib_command.
func (s *Slice) DylibName(c Command) (string, error) {
	var dl macho.Dylib
	if err := s.decode(c.Offset+macho.LoadHeaderLen, &dl); err != nil {
		return "", err
	}
	return s.commandString(c, dl.Name)
}

func (s *Slice) commandString(c Command, nameOff uint32) (string, error) {
	if nameOff < macho.LoadHeaderLen || nameOff >= c.Size {
		return "", fmt.Errorf("%w: %s name offset %d out of range", ErrMalformed, c.Cmd, nameOff)
	}
	return macho.CString(s.data[c.Offset+int(nameOff) : c.Offset+int(c.Size)]), nil
}

func (s *Slice) readHeader() error {
	if !s.is64 {
		var h macho.Header32
		if err := s.decode(0, &h); err != nil {
			return err
		}
		s.Header = macho.Header64{
			Magic:      h.Magic,
			CpuType:    h.CpuType,
			CpuSubtype: h.CpuSubtype,
			Filetype:   h.Filetype,
			NCmds:      h.NCmds,
			SizeOfCmds: h.SizeOfCmds,
			Flags:      h.Flags,
		}
		return nil
	}
	return s.decode(0, &s.Header)
}

func (s *Slice) writeHeader() error {
	if !s.is64 {
		h := s.Header
		return s.encode(0, macho.Header32{
			Magic:      h.Magic,
			CpuType:    h.CpuType,
			CpuSubtype: h.CpuSubtype,
			Filetype:   h.Filetype,
			NCmds:      h.NCmds,
			SizeOfCmds: h.SizeOfCmds,
			Flags:      h.Flags,
		})
	}
	return s.encode(0, s.Header)
}

func (s *Slice) decode(off int, v any) error {
	n := binary.Size(v)
	if off < 0 || off+n > len(s.data) {
		return fmt.Errorf("%w: read of %d bytes at %#x past end", ErrMalformed, n, off)
	}
	return binary.Read(bytes.NewReader(s.data[off:off+n]), s.order, v)
}

func (s *Slice) encode(off int, vs ...any) error {
	bts, err := encodeStructs(s.order, vs...)
	if err != nil {
		return err
	}
	if off < 0 || off+len(bts) > len(s.data) {
		return fmt.Errorf("%w: write of %d bytes at %#x past end", ErrNotEnoughSpace, len(bts), off)
	}
	copy(s.data[off:], bts)
	return nil
}
