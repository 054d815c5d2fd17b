package ports

// NativeCaller performs a call through the host's single fixed C calling
// convention. Arguments are already marshaled to native words.
type NativeCaller interface {
	// Call invokes fn with args and returns the raw integer return register.
	Call(fn uintptr, args []uintptr) (uintptr, error)

	// MaxArgs is the largest argument count the trampoline supports.
	MaxArgs() int
}
