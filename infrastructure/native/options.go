package native

import (
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrOrdinalUnsupported is returned when the platform loader cannot
	// resolve functions by ordinal.
	ErrOrdinalUnsupported = errors.New("native: resolution by ordinal is not supported on this platform")

	// ErrUnsupportedPlatform is returned by every operation on platforms
	// without a dynamic loader.
	ErrUnsupportedPlatform = errors.New("native: dynamic loading is not supported on this platform")

	// ErrTooManyArguments is returned when a call exceeds MaxArgs.
	ErrTooManyArguments = errors.New("native: too many arguments")
)

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// NewLoader creates a loader for the current platform.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}
