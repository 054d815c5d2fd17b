package hostfuncs

import (
	"math"

	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

// readArgs reads the raw argument words for sig from the guest stream at addr.
// Int64 values occupy two words. Nothing is read when sig has no parameters.
func readArgs(mem ports.AddressTranslator, op string, sig entities.Signature, addr uint32) ([]uint64, error) {
	if len(sig.Params) == 0 {
		return nil, nil
	}
	if !mem.ValidateAppAddr(addr, wordSize) {
		return nil, invalidAddr(op, addr, wordSize)
	}
	cursor, err := NewArgCursor(mem, op, addr)
	if err != nil {
		return nil, err
	}

	raw := make([]uint64, len(sig.Params))
	for i, p := range sig.Params {
		if p.Words() == 2 {
			raw[i], err = cursor.Next64()
		} else {
			var w uint32
			w, err = cursor.Next()
			raw[i] = uint64(w)
		}
		if err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// marshalArgs converts raw guest words to native call arguments. Pointer
// arguments are validated over their full extent and translated in place.
func marshalArgs(mem ports.AddressTranslator, op string, sig entities.Signature, raw []uint64, maxString uint32) ([]uintptr, error) {
	args := make([]uintptr, len(sig.Params))
	for i, p := range sig.Params {
		if !p.IsPointer() {
			args[i] = scalarToNative(p.Kind(), raw[i])
			continue
		}

		off := uint32(raw[i])
		if off == 0 {
			if p.Annotations().Has(entities.AnnotationOpt) {
				continue
			}
			return nil, invalidAddr(op, 0, p.Kind().Size())
		}
		if err := validatePointer(mem, op, sig, raw, i, maxString); err != nil {
			return nil, err
		}
		args[i] = mem.AppToNative(off)
	}
	return args, nil
}

// validatePointer checks the guest extent of pointer parameter i.
//
//	BCount  the count parameter holds a byte length
//	ECount  the count parameter holds an element count
//	In      a NUL-terminated byte string when no count is given
//	other   a single element
func validatePointer(mem ports.AddressTranslator, op string, sig entities.Signature, raw []uint64, i int, maxString uint32) error {
	p := sig.Params[i]
	off := uint32(raw[i])
	annot := p.Annotations()
	elem := p.Kind().Size()

	var extent uint64
	switch {
	case annot.Has(entities.AnnotationBCount):
		idx := p.CountIndex()
		extent = countValue(sig.Params[idx].Kind(), raw[idx])
	case annot.Has(entities.AnnotationECount):
		idx := p.CountIndex()
		n := countValue(sig.Params[idx].Kind(), raw[idx])
		if n > math.MaxUint32/uint64(elem) {
			return invalidAddr(op, off, math.MaxUint32)
		}
		extent = n * uint64(elem)
	case isString(p):
		if !mem.ValidateAppString(off, maxString) {
			return invalidAddr(op, off, maxString)
		}
		return nil
	default:
		extent = uint64(elem)
	}

	if extent > math.MaxUint32 || !mem.ValidateAppAddr(off, uint32(extent)) {
		return invalidAddr(op, off, uint32(min(extent, math.MaxUint32)))
	}
	return nil
}

// isString reports whether an uncounted pointer is an input byte string.
func isString(p entities.TypeCode) bool {
	annot := p.Annotations()
	return annot.Has(entities.AnnotationIn) && !annot.Has(entities.AnnotationOut) &&
		p.Kind().Size() == 1
}

// countValue reads a count parameter as unsigned at its declared width.
func countValue(kind entities.ValueKind, v uint64) uint64 {
	switch kind {
	case entities.KindInt8:
		return v & math.MaxUint8
	case entities.KindInt16:
		return v & math.MaxUint16
	case entities.KindInt32:
		return v & math.MaxUint32
	default:
		return v
	}
}

// scalarToNative sign-extends a guest scalar to the native word.
func scalarToNative(kind entities.ValueKind, v uint64) uintptr {
	switch kind {
	case entities.KindInt8:
		return uintptr(int64(int8(v)))
	case entities.KindInt16:
		return uintptr(int64(int16(v)))
	case entities.KindInt32:
		return uintptr(int64(int32(v)))
	default:
		return uintptr(v)
	}
}

// unmarshalReturn converts the native return register per the declared
// return kind. Pointers outside guest memory come back as 0.
func (b *Bridge) unmarshalReturn(mem ports.AddressTranslator, fb *FunctionBinding, r uintptr) uint64 {
	ret := fb.sig.Return
	if ret.IsPointer() {
		if r == 0 {
			return 0
		}
		off, ok := mem.NativeToApp(r)
		if !ok {
			b.logger.Warn("native pointer outside guest memory",
				zap.String("symbol", fb.symbol),
				zap.Uintptr("ptr", r))
			return 0
		}
		return uint64(off)
	}
	return extendReturn(ret.Kind(), r)
}

func extendReturn(kind entities.ValueKind, r uintptr) uint64 {
	switch kind {
	case entities.KindVoid:
		return 0
	case entities.KindInt8:
		return uint64(int64(int8(r)))
	case entities.KindInt16:
		return uint64(int64(int16(r)))
	case entities.KindInt32:
		return uint64(int64(int32(r)))
	default:
		return uint64(r)
	}
}
