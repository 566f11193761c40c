package macho

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blacktop/go-macho/types"
)

type Magic uint32

const (
	M32    Magic = 0xfeedface
	M64    Magic = 0xfeedfacf
	C32    Magic = 0xcefaedfe
	C64    Magic = 0xcffaedfe
	MFat   Magic = 0xcafebabe
	MFat64 Magic = 0xcafebabf
	CFat   Magic = 0xbebafeca
	CFat64 Magic = 0xbfbafeca
)

// IsFat reports whether m is a universal header magic as read big-endian.
func (m Magic) IsFat() bool {
	return m == MFat || m == MFat64
}

type Filetype uint32

const (
	MH_OBJECT  Filetype = 0x1
	MH_EXECUTE Filetype = 0x2
	MH_DYLIB   Filetype = 0x6
	MH_BUNDLE  Filetype = 0x8
)

func (t Filetype) String() string {
	switch t {
	case MH_OBJECT:
		return "MH_OBJECT"
	case MH_EXECUTE:
		return "MH_EXECUTE"
	case MH_DYLIB:
		return "MH_DYLIB"
	case MH_BUNDLE:
		return "MH_BUNDLE"
	}
	return fmt.Sprintf("Filetype(%#x)", uint32(t))
}

type HeaderFlag uint32

const (
	MH_NOUNDEFS             HeaderFlag = 0x1
	MH_DYLDLINK             HeaderFlag = 0x4
	MH_TWOLEVEL             HeaderFlag = 0x80
	MH_NO_REEXPORTED_DYLIBS HeaderFlag = 0x100000
	MH_PIE                  HeaderFlag = 0x200000
)

type Cmd uint32

const (
	LC_REQ_DYLD        Cmd = 0x80000000
	LC_SEGMENT         Cmd = 0x1
	LC_SYMTAB          Cmd = 0x2
	LC_DYSYMTAB        Cmd = 0xb
	LC_LOAD_DYLIB      Cmd = 0xc
	LC_ID_DYLIB        Cmd = 0xd
	LC_LOAD_WEAK_DYLIB     = (0x18 | LC_REQ_DYLD)
	LC_SEGMENT_64      Cmd = 0x19
	LC_UUID            Cmd = 0x1b
	LC_RPATH           Cmd = (0x1c | LC_REQ_DYLD)
	LC_CODE_SIGNATURE  Cmd = 0x1d
	LC_BUILD_VERSION   Cmd = 0x32
	LC_MAIN            Cmd = (0x28 | LC_REQ_DYLD)

	// LC_PLACEHOLDER_DYLIB marks a library command that dyld must ignore
	// until it is switched to LC_LOAD_DYLIB.
	LC_PLACEHOLDER_DYLIB Cmd = 0x114514
)

var cmdNames = map[Cmd]string{
	LC_SEGMENT:           "LC_SEGMENT",
	LC_SYMTAB:            "LC_SYMTAB",
	LC_DYSYMTAB:          "LC_DYSYMTAB",
	LC_LOAD_DYLIB:        "LC_LOAD_DYLIB",
	LC_ID_DYLIB:          "LC_ID_DYLIB",
	LC_LOAD_WEAK_DYLIB:   "LC_LOAD_WEAK_DYLIB",
	LC_SEGMENT_64:        "LC_SEGMENT_64",
	LC_UUID:              "LC_UUID",
	LC_RPATH:             "LC_RPATH",
	LC_CODE_SIGNATURE:    "LC_CODE_SIGNATURE",
	LC_BUILD_VERSION:     "LC_BUILD_VERSION",
	LC_MAIN:              "LC_MAIN",
	LC_PLACEHOLDER_DYLIB: "LC_PLACEHOLDER_DYLIB",
}

func (c Cmd) String() string {
	if n, ok := cmdNames[c]; ok {
		return n
	}
	if n := types.LoadCmd(c).String(); !strings.HasPrefix(n, "LoadCmd(") {
		return n
	}
	return fmt.Sprintf("Cmd(%#x)", uint32(c))
}

// IsDylib reports whether the command body is a dylib_command.
func (c Cmd) IsDylib() bool {
	switch c {
	case LC_LOAD_DYLIB, LC_ID_DYLIB, LC_LOAD_WEAK_DYLIB, LC_PLACEHOLDER_DYLIB:
		return true
	}
	return false
}

type CpuType uint32

const (
	CPU_ARCH_ABI64  CpuType = 0x01000000
	CPU_TYPE_X86    CpuType = 7
	CPU_TYPE_X86_64         = CPU_TYPE_X86 | CPU_ARCH_ABI64
	CPU_TYPE_ARM    CpuType = 12
	CPU_TYPE_ARM64          = CPU_TYPE_ARM | CPU_ARCH_ABI64
)

func (c CpuType) String() string {
	switch c {
	case CPU_TYPE_X86:
		return "i386"
	case CPU_TYPE_X86_64:
		return "x86_64"
	case CPU_TYPE_ARM:
		return "arm"
	case CPU_TYPE_ARM64:
		return "arm64"
	}
	return fmt.Sprintf("CpuType(%#x)", uint32(c))
}

// ParseCpuType maps an architecture name such as "arm64" to its CPU type.
func ParseCpuType(name string) (CpuType, error) {
	switch strings.ToLower(name) {
	case "i386", "x86":
		return CPU_TYPE_X86, nil
	case "x86_64", "amd64":
		return CPU_TYPE_X86_64, nil
	case "arm":
		return CPU_TYPE_ARM, nil
	case "arm64", "aarch64":
		return CPU_TYPE_ARM64, nil
	}
	return 0, fmt.Errorf("unknown cpu type %q", name)
}

type Platform uint32

const (
	PLATFORM_MACOS            Platform = 1
	PLATFORM_IOS              Platform = 2
	PLATFORM_TVOS             Platform = 3
	PLATFORM_WATCHOS          Platform = 4
	PLATFORM_BRIDGEOS         Platform = 5
	PLATFORM_MACCATALYST      Platform = 6
	PLATFORM_IOSSIMULATOR     Platform = 7
	PLATFORM_TVOSSIMULATOR    Platform = 8
	PLATFORM_WATCHOSSIMULATOR Platform = 9
	PLATFORM_DRIVERKIT        Platform = 10
)

var platformNames = []string{
	PLATFORM_MACOS:            "macos",
	PLATFORM_IOS:              "ios",
	PLATFORM_TVOS:             "tvos",
	PLATFORM_WATCHOS:          "watchos",
	PLATFORM_BRIDGEOS:         "bridgeos",
	PLATFORM_MACCATALYST:      "maccatalyst",
	PLATFORM_IOSSIMULATOR:     "iossimulator",
	PLATFORM_TVOSSIMULATOR:    "tvossimulator",
	PLATFORM_WATCHOSSIMULATOR: "watchossimulator",
	PLATFORM_DRIVERKIT:        "driverkit",
}

func (p Platform) String() string {
	if int(p) > 0 && int(p) < len(platformNames) {
		return platformNames[p]
	}
	return fmt.Sprintf("Platform(%d)", uint32(p))
}

// ParsePlatform accepts a platform name ("ios", "macos", ...) or its number.
func ParsePlatform(s string) (Platform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range platformNames {
		if n != "" && n == s {
			return Platform(i), nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 32); err == nil && n > 0 && int(n) < len(platformNames) {
		return Platform(n), nil
	}
	return 0, fmt.Errorf("unknown platform %q", s)
}
