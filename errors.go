package machpatch

import "errors"

var (
	ErrNotMachO           = errors.New("not a Mach-O file")
	ErrMalformed          = errors.New("malformed Mach-O")
	ErrUnsupportedMagic   = errors.New("unsupported Mach-O magic")
	ErrNotExecute         = errors.New("not executable (MH_EXECUTE)")
	ErrNotLastCommand     = errors.New("cmd LC_CODE_SIGNATURE not last")
	ErrTypeNotSupported   = errors.New("unsupported load type")
	ErrNotEnoughSpace     = errors.New("not enough space for new command")
	ErrUnexpectedCommand  = errors.New("first load command is not LC_SEGMENT_64 or LC_ID_DYLIB")
	ErrUnexpectedPageZero = errors.New("__PAGEZERO does not span 4GiB")
	ErrNoMatchingSlice    = errors.New("no slice for requested cpu type")
	ErrReplacementTooLong = errors.New("replacement longer than pattern")
	ErrEmptyPattern       = errors.New("empty pattern")
)
