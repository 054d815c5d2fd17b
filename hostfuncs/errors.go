package hostfuncs

import (
	"errors"

	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
)

// Status is the i32 result code returned to the guest by invoke and unbind.
type Status int32

const (
	StatusOK             Status = 0
	StatusUnknownBinding Status = -1
	StatusArityMismatch  Status = -2
	StatusNativeCall     Status = -3
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknownBinding:
		return "unknown binding"
	case StatusArityMismatch:
		return "arity mismatch"
	case StatusNativeCall:
		return "native call failed"
	default:
		return "unknown status"
	}
}

// StatusFromError maps a bridge error onto the guest status code.
// InvalidGuestAddress has no status; it traps the guest instead, and callers
// must check IsGuestFault first.
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, domainerrors.ErrUnknownBinding):
		return StatusUnknownBinding
	case errors.Is(err, domainerrors.ErrArityMismatch):
		return StatusArityMismatch
	default:
		return StatusNativeCall
	}
}

// IsGuestFault reports whether err must be surfaced as a guest exception.
func IsGuestFault(err error) bool {
	return errors.Is(err, domainerrors.ErrInvalidGuestAddress)
}

func invalidAddr(op string, offset, size uint32) error {
	return &domainerrors.InvalidGuestAddressError{Op: op, Offset: offset, Size: size}
}
