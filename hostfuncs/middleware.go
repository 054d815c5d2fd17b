package hostfuncs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
)

// CallHandler performs one native call with marshaled arguments.
type CallHandler func(ctx context.Context, b *FunctionBinding, args []uintptr) (uintptr, error)

// Middleware wraps a CallHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	timing := func(next CallHandler) CallHandler {
//	    return func(ctx context.Context, b *FunctionBinding, args []uintptr) (uintptr, error) {
//	        start := time.Now()
//	        defer func() { metrics.Observe(b.Symbol(), time.Since(start)) }()
//	        return next(ctx, b, args)
//	    }
//	}
type Middleware func(next CallHandler) CallHandler

func chain(h CallHandler, mws []Middleware) CallHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// PanicRecoveryMiddleware converts a Go panic raised below it into a
// NativeCallError. A fault inside native code is not a Go panic and is not
// recovered.
func PanicRecoveryMiddleware() Middleware {
	return func(next CallHandler) CallHandler {
		return func(ctx context.Context, b *FunctionBinding, args []uintptr) (ret uintptr, err error) {
			defer func() {
				if r := recover(); r != nil {
					ret = 0
					err = &domainerrors.NativeCallError{Symbol: b.Symbol(), Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			return next(ctx, b, args)
		}
	}
}

// LoggingMiddleware logs every native call at debug level and failures at warn.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next CallHandler) CallHandler {
		return func(ctx context.Context, b *FunctionBinding, args []uintptr) (uintptr, error) {
			start := time.Now()
			ret, err := next(ctx, b, args)
			fields := []zap.Field{
				zap.String("module", b.ModuleName()),
				zap.String("symbol", b.Symbol()),
				zap.Int("argc", len(args)),
				zap.Duration("elapsed", time.Since(start)),
			}
			if guest, ok := GuestNameFromContext(ctx); ok {
				fields = append(fields, zap.String("guest", guest))
			}
			if err != nil {
				logger.Warn("native call failed", append(fields, zap.Error(err))...)
				return ret, err
			}
			logger.Debug("native call", append(fields, zap.Uint64("ret", uint64(ret)))...)
			return ret, nil
		}
	}
}
