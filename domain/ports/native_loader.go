package ports

// NativeLoader loads, resolves and unloads native modules of the host.
// Implementations are platform specific and interchangeable.
type NativeLoader interface {
	// Open loads the named module and returns its handle.
	// Every successful Open must be balanced by one Close.
	Open(name string) (uintptr, error)

	// Symbol resolves an exported function by name.
	Symbol(module uintptr, name string) (uintptr, error)

	// Ordinal resolves an exported function by ordinal.
	Ordinal(module uintptr, ordinal uint16) (uintptr, error)

	// Close releases a handle returned by Open.
	Close(module uintptr) error
}
