//go:build wasip1

package abi

// Allocation failures return 0, which the bridge reports to C callers as a
// null pointer.

//go:wasmexport allocate
func allocate(size uint32) uint32 {
	ptr, err := Default.Alloc(size)
	if err != nil {
		return 0
	}
	return uint32(ptr)
}

//go:wasmexport deallocate
func deallocate(ptr uint32) {
	Default.Free(uintptr(ptr))
}

//go:wasmexport reallocate
func reallocate(ptr, size uint32) uint32 {
	np, err := Default.Realloc(uintptr(ptr), size)
	if err != nil {
		return 0
	}
	return uint32(np)
}
