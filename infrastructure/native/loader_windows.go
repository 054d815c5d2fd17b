//go:build windows

package native

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

var _ ports.NativeLoader = (*Loader)(nil)

// Loader resolves modules with LoadLibrary. Every Open takes its own
// reference, released by Close through FreeLibrary.
type Loader struct {
	logger *zap.Logger
}

func (l *Loader) Open(name string) (uintptr, error) {
	h, err := windows.LoadLibrary(name)
	if err != nil {
		return 0, fmt.Errorf("LoadLibrary %s: %w", name, err)
	}
	l.logger.Debug("LoadLibrary", zap.String("module", name), zap.Uintptr("handle", uintptr(h)))
	return uintptr(h), nil
}

func (l *Loader) Symbol(module uintptr, name string) (uintptr, error) {
	fn, err := windows.GetProcAddress(windows.Handle(module), name)
	if err != nil {
		return 0, fmt.Errorf("GetProcAddress %s: %w", name, err)
	}
	return fn, nil
}

func (l *Loader) Ordinal(module uintptr, ordinal uint16) (uintptr, error) {
	fn, err := windows.GetProcAddressByOrdinal(windows.Handle(module), uintptr(ordinal))
	if err != nil {
		return 0, fmt.Errorf("GetProcAddress #%d: %w", ordinal, err)
	}
	return fn, nil
}

func (l *Loader) Close(module uintptr) error {
	if err := windows.FreeLibrary(windows.Handle(module)); err != nil {
		return fmt.Errorf("FreeLibrary: %w", err)
	}
	return nil
}
