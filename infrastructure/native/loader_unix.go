//go:build darwin || freebsd || linux || netbsd

package native

import (
	"fmt"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

var _ ports.NativeLoader = (*Loader)(nil)

// Loader resolves modules with dlopen. Modules are opened RTLD_NOW so missing
// dependencies fail the bind rather than a later call, and RTLD_LOCAL so their
// symbols do not leak into other lookups.
type Loader struct {
	logger *zap.Logger
}

func (l *Loader) Open(name string) (uintptr, error) {
	h, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return 0, fmt.Errorf("dlopen %s: %w", name, err)
	}
	l.logger.Debug("dlopen", zap.String("module", name), zap.Uintptr("handle", h))
	return h, nil
}

func (l *Loader) Symbol(module uintptr, name string) (uintptr, error) {
	fn, err := purego.Dlsym(module, name)
	if err != nil {
		return 0, fmt.Errorf("dlsym %s: %w", name, err)
	}
	return fn, nil
}

func (l *Loader) Ordinal(uintptr, uint16) (uintptr, error) {
	return 0, ErrOrdinalUnsupported
}

func (l *Loader) Close(module uintptr) error {
	if err := purego.Dlclose(module); err != nil {
		return fmt.Errorf("dlclose: %w", err)
	}
	return nil
}
