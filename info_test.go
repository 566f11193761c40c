package machpatch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lateralusd/machpatch/internal/macho"
)

func TestDescribe(t *testing.T) {
	path := writeTemp(t, "tool", buildImage(t, macho.MH_EXECUTE, macho.CPU_TYPE_ARM64, testImageSize,
		pageZeroCmd(t),
		dylibCmd(t, macho.LC_LOAD_DYLIB, "/usr/lib/libSystem.B.dylib", 26),
		buildVersionCmd(t, macho.PLATFORM_IOS),
	))

	sum, err := Describe(path)
	require.NoError(t, err)
	assert.Equal(t, path, sum.Path)
	assert.False(t, sum.Fat)
	require.Len(t, sum.Slices, 1)

	ss := sum.Slices[0]
	assert.True(t, ss.Is64)
	assert.Equal(t, macho.CPU_TYPE_ARM64, ss.CPU)
	assert.Equal(t, macho.PLATFORM_IOS, ss.Platform)
	require.Len(t, ss.Commands, 3)
	assert.Equal(t, "__PAGEZERO vmaddr=0x0 vmsize=0x100000000", ss.Commands[0].Detail)
	assert.Equal(t, "/usr/lib/libSystem.B.dylib", ss.Commands[1].Detail)
	assert.Equal(t, "ios", ss.Commands[2].Detail)
}

func TestDescribeMissing(t *testing.T) {
	_, err := Describe(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
