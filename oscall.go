package oscall

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"unsafe"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/internal/abi"
)

// ModuleName is the host module the bridge is imported from.
const ModuleName = entities.DefaultModuleName

// Guest-visible status codes of call and release.
const (
	statusOK             int32 = 0
	statusUnknownBinding int32 = -1
	statusArityMismatch  int32 = -2
	statusNativeCall     int32 = -3
)

var (
	// ErrBindFailed is returned when the host could not or would not resolve
	// the function.
	ErrBindFailed = errors.New("oscall: bind failed")

	// ErrUnknownBinding is returned for calls through a released or foreign handle.
	ErrUnknownBinding = errors.New("oscall: unknown binding")

	// ErrArityMismatch is returned when the argument count differs from the signature.
	ErrArityMismatch = errors.New("oscall: arity mismatch")

	// ErrNativeCall is returned when the host refused or failed the call.
	ErrNativeCall = errors.New("oscall: native call failed")

	// ErrNoHost is returned outside a wasm guest.
	ErrNoHost = errors.New("oscall: not running under a wasm host")
)

// Func is a bound native function.
type Func struct {
	sig    entities.Signature
	name   string
	handle uint32
}

// StatusError maps a bridge status code to an error. 0 maps to nil.
func StatusError(status int32) error {
	switch status {
	case statusOK:
		return nil
	case statusUnknownBinding:
		return ErrUnknownBinding
	case statusArityMismatch:
		return ErrArityMismatch
	case statusNativeCall:
		return ErrNativeCall
	default:
		return fmt.Errorf("oscall: unexpected status %d", status)
	}
}

// CString returns s as a NUL-terminated byte slice.
func CString(s string) []byte {
	return abi.CString(s)
}

// Addr returns the guest address of b as a call argument, or 0 for an empty slice.
func Addr(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	return uint64(addrOf(unsafe.Pointer(&b[0])))
}

// Bind resolves symbol in module with the given signature.
func Bind(module, symbol string, ret entities.TypeCode, params ...entities.TypeCode) (*Func, error) {
	sym := abi.CString(symbol)
	f, err := bind(module, symbol, func() uint32 { return addrOf(unsafe.Pointer(&sym[0])) }, ret, params)
	runtime.KeepAlive(sym)
	return f, err
}

// BindOrdinal resolves the function exported under ordinal in module.
// Only hosts whose loader supports ordinals (Windows) can resolve these.
func BindOrdinal(module string, ordinal uint16, ret entities.TypeCode, params ...entities.TypeCode) (*Func, error) {
	return bind(module, "#"+strconv.Itoa(int(ordinal)), func() uint32 {
		return 0xFFFF0000 | uint32(ordinal)
	}, ret, params)
}

func bind(module, name string, functionID func() uint32, ret entities.TypeCode, params []entities.TypeCode) (*Func, error) {
	sig := entities.Signature{Return: ret, Params: append([]entities.TypeCode(nil), params...)}
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("oscall: %s: %w", name, err)
	}

	mod := abi.CString(module)
	codes := make([]uint32, len(params)+1)
	for i, p := range params {
		codes[i] = uint32(p)
	}

	h := hostBind(
		addrOf(unsafe.Pointer(&mod[0])),
		functionID(),
		uint32(ret),
		uint32(len(params)),
		addrOf(unsafe.Pointer(&codes[0])),
	)
	runtime.KeepAlive(mod)
	runtime.KeepAlive(codes)
	if h == 0 {
		return nil, fmt.Errorf("%w: %s!%s", ErrBindFailed, module, name)
	}
	return &Func{sig: sig, name: name, handle: h}, nil
}

// Signature returns the declared signature.
func (f *Func) Signature() entities.Signature {
	return f.sig
}

// Call invokes the function with one argument per parameter. Int64
// arguments use the full 64 bits; all others the low 32.
func (f *Func) Call(args ...uint64) (uint64, error) {
	if len(args) != len(f.sig.Params) {
		return 0, fmt.Errorf("%s: %w: want %d arguments, got %d", f.name, ErrArityMismatch, len(f.sig.Params), len(args))
	}

	words := make([]uint32, 0, f.sig.Words()+1)
	for i, p := range f.sig.Params {
		words = append(words, uint32(args[i]))
		if p.Words() == 2 {
			words = append(words, uint32(args[i]>>32))
		}
	}
	words = append(words, 0)

	var result uint64
	status := hostCall(
		f.handle,
		uint32(len(args)),
		addrOf(unsafe.Pointer(&words[0])),
		addrOf(unsafe.Pointer(&result)),
	)
	runtime.KeepAlive(words)
	if err := StatusError(status); err != nil {
		return 0, fmt.Errorf("%s: %w", f.name, err)
	}
	return result, nil
}

// Release unbinds the function. The module is unloaded by the host once its
// last binding is released.
func (f *Func) Release() error {
	if err := StatusError(hostUnbind(f.handle)); err != nil {
		return fmt.Errorf("%s: %w", f.name, err)
	}
	return nil
}
