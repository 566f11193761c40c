//go:build unix

package machpatch

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type mappedFile struct {
	f    *os.File
	data []byte
}

func mapFile(path string) (*mappedFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() < 4 {
		f.Close()
		return nil, ErrNotMachO
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	return &mappedFile{f: f, data: data}, nil
}

func (m *mappedFile) Close() error {
	err := unix.Msync(m.data, unix.MS_SYNC)
	if uerr := unix.Munmap(m.data); err == nil {
		err = uerr
	}
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
