package wazero

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
	"github.com/reglet-dev/reglet-oscall/hostfuncs"
)

// NewCapabilityChecker creates a bind guard whose default grants include
// those persisted in store. Per-guest grants take precedence over defaults.
func NewCapabilityChecker(store ports.GrantStore, guests map[string]*entities.GrantSet, opts ...hostfuncs.CapabilityCheckerOption) (*hostfuncs.CapabilityChecker, error) {
	checker := hostfuncs.NewCapabilityChecker(guests, opts...)
	if store != nil {
		g, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("load grants from %s: %w", store.ConfigPath(), err)
		}
		checker.MergeDefaults(g)
	}
	return checker, nil
}

// WithCapabilityMiddleware re-checks the grant of every call, so revoking a
// guest's grants also stops handles it bound earlier. A module bound under
// several names passes when any of them is granted.
func WithCapabilityMiddleware(guard hostfuncs.BindGuard) hostfuncs.Middleware {
	return func(next hostfuncs.CallHandler) hostfuncs.CallHandler {
		return func(ctx context.Context, b *hostfuncs.FunctionBinding, args []uintptr) (uintptr, error) {
			if err := checkBinding(ctx, guard, b); err != nil {
				return 0, &domainerrors.NativeCallError{Symbol: b.Symbol(), Err: err}
			}
			return next(ctx, b, args)
		}
	}
}

func checkBinding(ctx context.Context, guard hostfuncs.BindGuard, b *hostfuncs.FunctionBinding) error {
	var first error
	for _, module := range b.ModuleNames() {
		err := guard.CheckBind(ctx, bindingRequestFor(module, b.Symbol()))
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// bindingRequestFor turns a binding's "#<ordinal>" symbol back into an ordinal request.
func bindingRequestFor(module, symbol string) entities.NativeRequest {
	req := entities.NativeRequest{Module: module, Symbol: symbol}
	if rest, ok := strings.CutPrefix(symbol, "#"); ok {
		if n, err := strconv.ParseUint(rest, 10, 16); err == nil {
			req.Symbol = ""
			req.Ordinal = uint16(n)
		}
	}
	return req
}
