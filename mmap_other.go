//go:build !unix

package machpatch

import "os"

// mappedFile emulates a shared mapping by writing the buffer back on Close.
type mappedFile struct {
	path string
	mode os.FileMode
	data []byte
}

func mapFile(path string) (*mappedFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, ErrNotMachO
	}
	return &mappedFile{path: path, mode: st.Mode().Perm(), data: data}, nil
}

func (m *mappedFile) Close() error {
	return os.WriteFile(m.path, m.data, m.mode)
}
