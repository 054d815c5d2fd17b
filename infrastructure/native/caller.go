//go:build darwin || freebsd || linux || netbsd || windows

package native

import (
	"fmt"

	"github.com/ebitengine/purego"

	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

var _ ports.NativeCaller = (*Caller)(nil)

// Caller calls native functions through purego.SyscallN.
// Only the integer return register is observed.
type Caller struct{}

// NewCaller creates a caller.
func NewCaller() *Caller {
	return &Caller{}
}

func (c *Caller) Call(fn uintptr, args []uintptr) (uintptr, error) {
	if fn == 0 {
		return 0, fmt.Errorf("native: call of nil function")
	}
	if len(args) > maxArgs {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyArguments, len(args), maxArgs)
	}
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1, nil
}

// MaxArgs is the largest argument count SyscallN accepts on this platform.
func (c *Caller) MaxArgs() int {
	return maxArgs
}
