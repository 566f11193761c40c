package macho

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCpuType(t *testing.T) {
	tests := []struct {
		in      string
		want    CpuType
		wantErr bool
	}{
		{in: "arm64", want: CPU_TYPE_ARM64},
		{in: "AArch64", want: CPU_TYPE_ARM64},
		{in: "x86_64", want: CPU_TYPE_X86_64},
		{in: "amd64", want: CPU_TYPE_X86_64},
		{in: "i386", want: CPU_TYPE_X86},
		{in: "arm", want: CPU_TYPE_ARM},
		{in: "ppc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCpuType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, must(ParseCpuType(got.String())))
		})
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		in      string
		want    Platform
		wantErr bool
	}{
		{in: "ios", want: PLATFORM_IOS},
		{in: " MacOS ", want: PLATFORM_MACOS},
		{in: "2", want: PLATFORM_IOS},
		{in: "10", want: PLATFORM_DRIVERKIT},
		{in: "0", wantErr: true},
		{in: "11", wantErr: true},
		{in: "amiga", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlatform(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "LC_LOAD_WEAK_DYLIB", LC_LOAD_WEAK_DYLIB.String())
	assert.Equal(t, "Cmd(0x99)", Cmd(0x99).String())
	assert.Equal(t, "MH_DYLIB", MH_DYLIB.String())
	assert.Equal(t, "Filetype(0x3)", Filetype(3).String())
	assert.Equal(t, "x86_64", CPU_TYPE_X86_64.String())
	assert.Equal(t, "iossimulator", PLATFORM_IOSSIMULATOR.String())
	assert.Equal(t, "Platform(42)", Platform(42).String())
}

func TestIsDylib(t *testing.T) {
	for _, c := range []Cmd{LC_LOAD_DYLIB, LC_ID_DYLIB, LC_LOAD_WEAK_DYLIB, LC_PLACEHOLDER_DYLIB} {
		assert.True(t, c.IsDylib(), c.String())
	}
	for _, c := range []Cmd{LC_RPATH, LC_SEGMENT_64, LC_BUILD_VERSION} {
		assert.False(t, c.IsDylib(), c.String())
	}
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "__TEXT", CString([]byte("__TEXT\x00\x00junk")))
	assert.Equal(t, "full", CString([]byte("full")))

	n := SegName("__LINKEDIT")
	assert.Equal(t, "__LINKEDIT", CString(n[:]))

	assert.True(t, IsZero(nil))
	assert.True(t, IsZero(make([]byte, 8)))
	assert.False(t, IsZero([]byte{0, 0, 1}))
}

func TestCmdStringKnownCommands(t *testing.T) {
	tests := []struct {
		cmd  Cmd
		want string
	}{
		{0x80000022, "LC_DYLD_INFO_ONLY"},
		{0x26, "LC_FUNCTION_STARTS"},
		{0x29, "LC_DATA_IN_CODE"},
		{0x2a, "LC_SOURCE_VERSION"},
		{0x80000033, "LC_DYLD_EXPORTS_TRIE"},
		{0x80000034, "LC_DYLD_CHAINED_FIXUPS"},
		{LC_PLACEHOLDER_DYLIB, cmdNames[LC_PLACEHOLDER_DYLIB]},
		{0x7777, "Cmd(0x7777)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}
