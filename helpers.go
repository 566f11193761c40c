package machpatch

import (
	"bytes"
	"encoding/binary"
	"log/slog"

	"github.com/lateralusd/machpatch/internal/macho"
)

// DefaultLibrary is the library an executable is linked against when it is
// turned into a dylib.
const DefaultLibrary = "/usr/lib/libc++.1.dylib"

type LoadType uint32

const (
	WEAK LoadType = iota
	DYLIB
	RPATH
)

type config struct {
	loadType      LoadType
	removeCodeSig bool
	dylibPath     string
	library       string
	cpu           macho.CpuType
	inject        bool
	logger        *slog.Logger
}

type Option = func(c *config)

func configFromOpts(opts ...Option) *config {
	c := &config{
		loadType: DYLIB,
		library:  DefaultLibrary,
		cpu:      macho.CPU_TYPE_ARM64,
		inject:   true,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func WithLoadType(t LoadType) Option {
	return Option(func(c *config) {
		c.loadType = t
	})
}

func WithRemoveCodeSig(remove bool) Option {
	return Option(func(c *config) {
		c.removeCodeSig = remove
	})
}

// WithLibrary sets the library linked by PatchExecSlice.
func WithLibrary(path string) Option {
	return Option(func(c *config) {
		if path != "" {
			c.library = path
		}
	})
}

// WithCPU selects which slices PatchFile touches.
func WithCPU(cpu macho.CpuType) Option {
	return Option(func(c *config) {
		c.cpu = cpu
	})
}

// WithInject controls whether the library command is live (LC_LOAD_DYLIB)
// or left as a placeholder.
func WithInject(inject bool) Option {
	return Option(func(c *config) {
		c.inject = inject
	})
}

func WithLogger(l *slog.Logger) Option {
	return Option(func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}

// padPath NUL terminates name and pads it to a multiple of padding.
func padPath(name string, padding int) []byte {
	res := make([]byte, Rnd32(uint32(len(name)+1), uint32(padding)))
	copy(res, name)
	return res
}

func encodeStructs(order binary.ByteOrder, vs ...any) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, v := range vs {
		if err := binary.Write(buf, order, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func newDylib() macho.Dylib {
	return macho.Dylib{
		Name:                 macho.DylibCmdSize,
		Timestamp:            2,
		CurrentVersion:       0x10000,
		CompatibilityVersion: 0x10000,
	}
}
