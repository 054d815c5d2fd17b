package hostfuncs

import (
	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

// BridgeOption is a functional option for configuring a Bridge.
type BridgeOption func(*bridgeBuilder)

type bridgeBuilder struct {
	loader      ports.NativeLoader
	caller      ports.NativeCaller
	guard       BindGuard
	logger      *zap.Logger
	middlewares []Middleware
	config      entities.BridgeConfig
}

// WithLoader sets the native module loader. Required.
func WithLoader(l ports.NativeLoader) BridgeOption {
	return func(b *bridgeBuilder) {
		b.loader = l
	}
}

// WithCaller sets the native call trampoline. Required.
func WithCaller(c ports.NativeCaller) BridgeOption {
	return func(b *bridgeBuilder) {
		b.caller = c
	}
}

// WithBindGuard restricts which native functions may be bound.
func WithBindGuard(g BindGuard) BridgeOption {
	return func(b *bridgeBuilder) {
		b.guard = g
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) BridgeOption {
	return func(b *bridgeBuilder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMiddleware appends call middleware. Middleware wraps every native call
// made by Invoke, in registration order.
func WithMiddleware(mw ...Middleware) BridgeOption {
	return func(b *bridgeBuilder) {
		b.middlewares = append(b.middlewares, mw...)
	}
}

// WithConfig sets the bridge configuration.
func WithConfig(cfg entities.BridgeConfig) BridgeOption {
	return func(b *bridgeBuilder) {
		b.config = cfg
	}
}
