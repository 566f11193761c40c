package machpatch

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lateralusd/machpatch/internal/macho"
)

const testImageSize = 0x1000

func mustEncode(t *testing.T, vs ...any) []byte {
	t.Helper()
	bts, err := encodeStructs(binary.LittleEndian, vs...)
	require.NoError(t, err)
	return bts
}

// buildImage lays out a little-endian 64-bit image with the given load
// commands followed by zero padding up to size.
func buildImage(t *testing.T, ft macho.Filetype, cpu macho.CpuType, size int, cmds ...[]byte) []byte {
	t.Helper()
	var sizeOf int
	for _, c := range cmds {
		sizeOf += len(c)
	}
	hdr := macho.Header64{
		Magic:      macho.M64,
		CpuType:    cpu,
		Filetype:   ft,
		NCmds:      uint32(len(cmds)),
		SizeOfCmds: uint32(sizeOf),
		Flags:      macho.MH_PIE | macho.MH_DYLDLINK | macho.MH_TWOLEVEL,
	}
	out := make([]byte, size)
	off := copy(out, mustEncode(t, hdr))
	for _, c := range cmds {
		off += copy(out[off:], c)
	}
	require.LessOrEqual(t, macho.Header64Size+sizeOf, size)
	return out
}

func buildImage32(t *testing.T, cmds ...[]byte) []byte {
	t.Helper()
	var sizeOf int
	for _, c := range cmds {
		sizeOf += len(c)
	}
	hdr := macho.Header32{
		Magic:      macho.M32,
		CpuType:    macho.CPU_TYPE_X86,
		Filetype:   macho.MH_EXECUTE,
		NCmds:      uint32(len(cmds)),
		SizeOfCmds: uint32(sizeOf),
	}
	out := make([]byte, testImageSize)
	off := copy(out, mustEncode(t, hdr))
	for _, c := range cmds {
		off += copy(out[off:], c)
	}
	return out
}

func segmentCmd(t *testing.T, name string, vmaddr, vmsize, fileoff, filesize uint64) []byte {
	t.Helper()
	return mustEncode(t,
		macho.LoadHeader{Cmd: macho.LC_SEGMENT_64, Size: 72},
		macho.Segment64{
			SegName:    macho.SegName(name),
			VMAddr:     vmaddr,
			VMSize:     vmsize,
			FileOffset: fileoff,
			FileSize:   filesize,
		})
}

func pageZeroCmd(t *testing.T) []byte {
	return segmentCmd(t, "__PAGEZERO", 0, macho.PageZeroVMSize, 0, 0)
}

func textCmd(t *testing.T) []byte {
	return segmentCmd(t, "__TEXT", macho.PageZeroVMSize, 0x4000, 0, 0x4000)
}

func buildVersionCmd(t *testing.T, p macho.Platform) []byte {
	t.Helper()
	return mustEncode(t,
		macho.LoadHeader{Cmd: macho.LC_BUILD_VERSION, Size: 24},
		macho.BuildVersion{Platform: p, MinOS: 0xe0000, SDK: 0xe0000})
}

func dylibCmd(t *testing.T, cmd macho.Cmd, name string, room int) []byte {
	t.Helper()
	size := macho.DylibCmdSize + int(Rnd32(uint32(room+1), 8))
	out := make([]byte, size)
	dl := newDylib()
	copy(out, mustEncode(t, macho.LoadHeader{Cmd: cmd, Size: uint32(size)}, dl))
	copy(out[macho.DylibCmdSize:], name)
	return out
}

func symtabCmd(t *testing.T, strOff, strSize uint32) []byte {
	t.Helper()
	return mustEncode(t,
		macho.LoadHeader{Cmd: macho.LC_SYMTAB, Size: 24},
		macho.Symtab{StrOff: strOff, StrSize: strSize})
}

func codeSigCmd(t *testing.T, off, size uint32) []byte {
	t.Helper()
	return mustEncode(t,
		macho.LoadHeader{Cmd: macho.LC_CODE_SIGNATURE, Size: 16},
		macho.LinkEditData{DataOff: off, DataSize: size})
}

func execImage(t *testing.T, cpu macho.CpuType) []byte {
	t.Helper()
	return buildImage(t, macho.MH_EXECUTE, cpu, testImageSize,
		pageZeroCmd(t), textCmd(t), buildVersionCmd(t, macho.PLATFORM_MACOS))
}

type fatSlice struct {
	cpu  macho.CpuType
	data []byte
}

// buildFat places each slice on its own 0x1000 boundary.
func buildFat(t *testing.T, slices ...fatSlice) []byte {
	t.Helper()
	out := make([]byte, testImageSize)
	hdr, err := encodeStructs(binary.BigEndian, macho.FatHeader{Magic: macho.MFat, NFatArch: uint32(len(slices))})
	require.NoError(t, err)
	off := copy(out, hdr)
	for _, s := range slices {
		arch, err := encodeStructs(binary.BigEndian, macho.FatArch{
			CpuType: s.cpu,
			Offset:  uint32(len(out)),
			Size:    uint32(len(s.data)),
			Align:   12,
		})
		require.NoError(t, err)
		copy(out[off:], arch)
		off += len(arch)

		padded := make([]byte, Rnd32(uint32(len(s.data)), testImageSize))
		copy(padded, s.data)
		out = append(out, padded...)
	}
	return out
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func parseSlices(t *testing.T, data []byte) []*Slice {
	t.Helper()
	var out []*Slice
	require.NoError(t, ParseBytes(data, func(_ string, s *Slice) error {
		out = append(out, s)
		return nil
	}))
	return out
}

func commandsOf(t *testing.T, s *Slice) []Command {
	t.Helper()
	cmds, err := s.Commands()
	require.NoError(t, err)
	return cmds
}
