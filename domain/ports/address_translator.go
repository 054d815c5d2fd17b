package ports

// AddressTranslator validates and converts addresses between the guest's linear
// memory (32-bit offsets) and the host address space.
//
// The bridge never dereferences a guest-supplied offset before validating it
// through this interface. Implementations are bound to one guest instance and
// are only valid for the duration of a single host call, since the guest memory
// may move when it grows.
type AddressTranslator interface {
	// ValidateAppAddr reports whether [offset, offset+size) lies inside guest memory.
	ValidateAppAddr(offset, size uint32) bool

	// ValidateAppString reports whether a NUL-terminated string starts at offset
	// and terminates within guest memory and within maxLen bytes.
	ValidateAppString(offset, maxLen uint32) bool

	// ReadAppString returns the string at offset without its terminator.
	ReadAppString(offset, maxLen uint32) (string, bool)

	// ValidateNativeAddr reports whether [ptr, ptr+size) lies inside guest memory.
	ValidateNativeAddr(ptr uintptr, size uint32) bool

	// AppToNative converts a validated guest offset into a host address.
	AppToNative(offset uint32) uintptr

	// NativeToApp converts a host address inside guest memory into an offset.
	NativeToApp(ptr uintptr) (uint32, bool)

	// NativeAddrRange returns the host address range of the memory region that
	// contains ptr.
	NativeAddrRange(ptr uintptr) (start, end uintptr, ok bool)

	// ReadUint32 reads a little-endian word at a guest offset.
	ReadUint32(offset uint32) (uint32, bool)

	// WriteUint64 writes a little-endian 64-bit value at a guest offset.
	WriteUint64(offset uint32, v uint64) bool

	// Zero clears size bytes at a guest offset.
	Zero(offset, size uint32) bool

	// SetException raises the guest's exception state with message.
	SetException(message string)
}
