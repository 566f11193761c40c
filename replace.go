package machpatch

import (
	"bytes"
	"os"
)

// ReplacePattern replaces every occurrence of pattern in the file at path.
// Shorter replacements are padded with zero bytes so no offset in the file
// moves. It returns the number of replacements made.
func ReplacePattern(path string, pattern, replacement []byte) (int, error) {
	if len(pattern) == 0 {
		return 0, ErrEmptyPattern
	}
	if len(replacement) > len(pattern) {
		return 0, ErrReplacementTooLong
	}

	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	count := bytes.Count(data, pattern)
	if count == 0 {
		return 0, nil
	}

	padded := make([]byte, len(pattern))
	copy(padded, replacement)
	if err := os.WriteFile(path, bytes.ReplaceAll(data, pattern, padded), st.Mode().Perm()); err != nil {
		return 0, err
	}
	return count, nil
}
