//go:build !wasip1

package oscall

import "unsafe"

// Native builds have no host to import from. Every bind fails, which makes
// the package importable by tools and tests outside wasm.
var (
	hostBind = func(module, function, ret, count, codes uint32) uint32 {
		return 0
	}
	hostCall = func(handle, argc, args, result uint32) int32 {
		return statusUnknownBinding
	}
	hostUnbind = func(handle uint32) int32 {
		return statusUnknownBinding
	}
)

func addrOf(p unsafe.Pointer) uint32 {
	return uint32(uintptr(p))
}
