//go:build !(darwin || freebsd || linux || netbsd || windows)

package native

import (
	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

var _ ports.NativeLoader = (*Loader)(nil)

// Loader fails every operation on this platform.
type Loader struct {
	logger *zap.Logger
}

func (l *Loader) Open(string) (uintptr, error)           { return 0, ErrUnsupportedPlatform }
func (l *Loader) Symbol(uintptr, string) (uintptr, error) { return 0, ErrUnsupportedPlatform }
func (l *Loader) Ordinal(uintptr, uint16) (uintptr, error) {
	return 0, ErrUnsupportedPlatform
}
func (l *Loader) Close(uintptr) error { return ErrUnsupportedPlatform }
