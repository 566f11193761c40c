package macho

type Header32 struct {
	Magic      Magic
	CpuType    CpuType
	CpuSubtype uint32
	Filetype   Filetype
	NCmds      uint32
	SizeOfCmds uint32
	Flags      HeaderFlag
}

type Header64 struct {
	Magic      Magic
	CpuType    CpuType
	CpuSubtype uint32
	Filetype   Filetype
	NCmds      uint32
	SizeOfCmds uint32
	Flags      HeaderFlag
	Reserved   uint32
}

const (
	Header32Size  = 28
	Header64Size  = 32
	LoadHeaderLen = 8
	DylibCmdSize  = LoadHeaderLen + 16
)

type LoadHeader struct {
	Cmd  Cmd
	Size uint32
}

type Segment64 struct {
	SegName    [16]byte
	VMAddr     uint64
	VMSize     uint64
	FileOffset uint64
	FileSize   uint64
	MaxProt    int32
	InitProt   int32
	NSect      uint32
	Flags      uint32
}

type Symtab struct {
	SymOff  uint32
	NSyms   uint32
	StrOff  uint32
	StrSize uint32
}

// LinkEditData is the body of LC_CODE_SIGNATURE and friends.
type LinkEditData struct {
	DataOff  uint32
	DataSize uint32
}

type Dylib struct {
	Name                 uint32
	Timestamp            uint32
	CurrentVersion       uint32
	CompatibilityVersion uint32
}

type Rpath struct {
	Name uint32
}

type BuildVersion struct {
	Platform Platform
	MinOS    uint32
	SDK      uint32
	NTools   uint32
}

// FatHeader and the arch entries are always big-endian on disk.
type FatHeader struct {
	Magic    Magic
	NFatArch uint32
}

type FatArch struct {
	CpuType    CpuType
	CpuSubtype uint32
	Offset     uint32
	Size       uint32
	Align      uint32
}

type FatArch64 struct {
	CpuType    CpuType
	CpuSubtype uint32
	Offset     uint64
	Size       uint64
	Align      uint32
	Reserved   uint32
}

const (
	FatHeaderSize  = 8
	FatArchSize    = 20
	FatArch64Size  = 32
	MaxFatArchs    = 128
	PageZeroVMSize = 0x100000000
	PageSize16K    = 0x4000
)
