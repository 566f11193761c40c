package machpatch

import (
	"encoding/binary"
	"fmt"

	"github.com/lateralusd/machpatch/internal/macho"
)

// SliceFunc is called once per Mach-O image found in a file.
type SliceFunc func(path string, s *Slice) error

type fatEntry struct {
	cpu    macho.CpuType
	offset uint64
	size   uint64
}

// ParseFile maps path read/write and calls fn for every image it holds.
// Modifications made by fn are synced back to the file before ParseFile
// returns.
func ParseFile(path string, fn SliceFunc) error {
	m, err := mapFile(path)
	if err != nil {
		return err
	}
	err = walk(path, m.data, fn)
	if cerr := m.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to sync %s: %w", path, cerr)
	}
	return err
}

// ParseBytes is ParseFile for an in-memory image.
func ParseBytes(data []byte, fn SliceFunc) error {
	return walk("", data, fn)
}

func walk(path string, data []byte, fn SliceFunc) error {
	if len(data) < 4 {
		return ErrNotMachO
	}

	if !macho.Magic(binary.BigEndian.Uint32(data)).IsFat() {
		s, err := newSlice(data, 0)
		if err != nil {
			return err
		}
		return fn(path, s)
	}

	entries, err := readFatEntries(data)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s, err := newSlice(data[e.offset:e.offset+e.size], int64(e.offset))
		if err != nil {
			return fmt.Errorf("slice %s at %#x: %w", e.cpu, e.offset, err)
		}
		s.Fat = true
		if err := fn(path, s); err != nil {
			return fmt.Errorf("slice %s at %#x: %w", e.cpu, e.offset, err)
		}
	}
	return nil
}

func readFatEntries(data []byte) ([]fatEntry, error) {
	if len(data) < macho.FatHeaderSize {
		return nil, fmt.Errorf("%w: truncated fat header", ErrMalformed)
	}
	magic := macho.Magic(binary.BigEndian.Uint32(data))
	count := binary.BigEndian.Uint32(data[4:])
	if count == 0 || count > macho.MaxFatArchs {
		return nil, fmt.Errorf("%w: %d fat entries", ErrMalformed, count)
	}

	entrySize := macho.FatArchSize
	if magic == macho.MFat64 {
		entrySize = macho.FatArch64Size
	}
	tableEnd := macho.FatHeaderSize + int(count)*entrySize
	if tableEnd > len(data) {
		return nil, fmt.Errorf("%w: truncated fat arch table", ErrMalformed)
	}

	entries := make([]fatEntry, 0, count)
	off := macho.FatHeaderSize
	for i := 0; i < int(count); i++ {
		var e fatEntry
		if magic == macho.MFat64 {
			var arch macho.FatArch64
			if _, err := binary.Decode(data[off:], binary.BigEndian, &arch); err != nil {
				return nil, err
			}
			e = fatEntry{cpu: arch.CpuType, offset: arch.Offset, size: arch.Size}
		} else {
			var arch macho.FatArch
			if _, err := binary.Decode(data[off:], binary.BigEndian, &arch); err != nil {
				return nil, err
			}
			e = fatEntry{cpu: arch.CpuType, offset: uint64(arch.Offset), size: uint64(arch.Size)}
		}
		if e.offset < uint64(tableEnd) || e.offset+e.size > uint64(len(data)) || e.offset+e.size < e.offset {
			return nil, fmt.Errorf("%w: fat entry %d (%s) outside file", ErrMalformed, i, e.cpu)
		}
		entries = append(entries, e)
		off += entrySize
	}
	return entries, nil
}
