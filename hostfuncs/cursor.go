package hostfuncs

import (
	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

// wordSize is the size of one variadic slot in a guest argument stream.
const wordSize = 4

// ArgCursor walks a guest variadic argument stream one 32-bit word at a time.
// The end of the readable range is fixed when the cursor is created; every read
// is checked against it.
type ArgCursor struct {
	mem   ports.AddressTranslator
	op    string
	off   uint32
	limit uint64
}

// NewArgCursor creates a cursor at a guest offset. The offset must already have
// been validated for one word. The limit is the end of the native memory
// region containing the offset.
func NewArgCursor(mem ports.AddressTranslator, op string, offset uint32) (*ArgCursor, error) {
	start := mem.AppToNative(offset)
	regionStart, regionEnd, ok := mem.NativeAddrRange(start)
	if !ok || start < regionStart || start >= regionEnd {
		return nil, &domainerrors.InvalidGuestAddressError{Op: op, Offset: offset, Size: wordSize}
	}
	return &ArgCursor{
		mem:   mem,
		op:    op,
		off:   offset,
		limit: uint64(offset) + uint64(regionEnd-start),
	}, nil
}

// Next reads the next little-endian word.
func (c *ArgCursor) Next() (uint32, error) {
	if uint64(c.off)+wordSize > c.limit {
		return 0, &domainerrors.InvalidGuestAddressError{Op: c.op, Offset: c.off, Size: wordSize}
	}
	v, ok := c.mem.ReadUint32(c.off)
	if !ok {
		return 0, &domainerrors.InvalidGuestAddressError{Op: c.op, Offset: c.off, Size: wordSize}
	}
	c.off += wordSize
	return v, nil
}

// Next64 reads two consecutive words as the low and high halves of a 64-bit value.
func (c *ArgCursor) Next64() (uint64, error) {
	lo, err := c.Next()
	if err != nil {
		return 0, err
	}
	hi, err := c.Next()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}
