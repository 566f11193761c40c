package macho

// CString returns the bytes of a NUL terminated string as a Go string.
func CString(bts []byte) string {
	for i := 0; i < len(bts); i++ {
		if bts[i] == 0 {
			return string(bts[:i])
		}
	}
	return string(bts)
}

func IsZero(bts []byte) bool {
	for _, b := range bts {
		if b != 0 {
			return false
		}
	}
	return true
}

// SegName encodes a segment name into its fixed 16 byte field.
func SegName(name string) [16]byte {
	var n [16]byte
	copy(n[:], name)
	return n
}
