//go:build !(darwin || freebsd || linux || netbsd || windows)

package native

import "github.com/reglet-dev/reglet-oscall/domain/ports"

var _ ports.NativeCaller = (*Caller)(nil)

// Caller fails every call on this platform.
type Caller struct{}

// NewCaller creates a caller.
func NewCaller() *Caller {
	return &Caller{}
}

func (c *Caller) Call(uintptr, []uintptr) (uintptr, error) {
	return 0, ErrUnsupportedPlatform
}

func (c *Caller) MaxArgs() int {
	return 0
}
