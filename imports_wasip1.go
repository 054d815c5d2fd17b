//go:build wasip1

package oscall

import "unsafe"

//go:wasmimport os_call wwrap
func hostBind(module, function, ret, count, codes uint32) uint32

//go:wasmimport os_call wcall
func hostCall(handle, argc, args, result uint32) int32

//go:wasmimport os_call wunwrap
func hostUnbind(handle uint32) int32

// addrOf returns the linear memory offset of p.
func addrOf(p unsafe.Pointer) uint32 {
	//nolint:gosec // G103: linear memory addresses are 32-bit offsets
	return uint32(uintptr(p))
}
