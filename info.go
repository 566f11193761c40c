package machpatch

import (
	"fmt"
	"os"

	"github.com/lateralusd/machpatch/internal/macho"
)

type Summary struct {
	Path   string
	Fat    bool
	Slices []SliceSummary
}

type SliceSummary struct {
	Offset   int64
	CPU      macho.CpuType
	Filetype macho.Filetype
	Flags    macho.HeaderFlag
	Is64     bool
	Platform macho.Platform
	Commands []CommandSummary
}

type CommandSummary struct {
	Cmd    macho.Cmd
	Size   uint32
	Detail string
}

// Describe reads the file at path without modifying it and lists every
// slice with its load commands.
func Describe(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Path: path}
	err = ParseBytes(data, func(_ string, s *Slice) error {
		ss, err := describeSlice(s)
		if err != nil {
			return err
		}
		sum.Fat = sum.Fat || s.Fat
		sum.Slices = append(sum.Slices, ss)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func describeSlice(s *Slice) (SliceSummary, error) {
	ss := SliceSummary{
		Offset:   s.Offset,
		CPU:      s.CPU(),
		Filetype: s.Filetype(),
		Flags:    s.Header.Flags,
		Is64:     s.Is64(),
	}
	cmds, err := s.Commands()
	if err != nil {
		return ss, err
	}
	for _, ld := range cmds {
		cs := CommandSummary{Cmd: ld.Cmd, Size: ld.Size}
		body := ld.Offset + macho.LoadHeaderLen
		switch {
		case ld.Cmd.IsDylib():
			cs.Detail, err = s.DylibName(ld)
		case ld.Cmd == macho.LC_RPATH:
			var rp macho.Rpath
			if err = s.decode(body, &rp); err == nil {
				cs.Detail, err = s.commandString(ld, rp.Name)
			}
		case ld.Cmd == macho.LC_SEGMENT_64:
			var seg macho.Segment64
			if err = s.decode(body, &seg); err == nil {
				cs.Detail = fmt.Sprintf("%s vmaddr=%#x vmsize=%#x", macho.CString(seg.SegName[:]), seg.VMAddr, seg.VMSize)
			}
		case ld.Cmd == macho.LC_BUILD_VERSION:
			var bv macho.BuildVersion
			if err = s.decode(body, &bv); err == nil {
				ss.Platform = bv.Platform
				cs.Detail = bv.Platform.String()
			}
		}
		if err != nil {
			return ss, err
		}
		ss.Commands = append(ss.Commands, cs)
	}
	return ss, nil
}
