package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/reglet-oscall/hostfuncs"
)

// WithGuestName adds the guest name to the context passed to guest calls.
// Capability checks use it to pick the guest's grants.
func WithGuestName(ctx context.Context, name string) context.Context {
	return hostfuncs.WithGuestName(ctx, name)
}

// GetGuestName extracts the guest name from context, falling back to the
// module name.
func GetGuestName(ctx context.Context, mod api.Module) string {
	if name, ok := hostfuncs.GuestNameFromContext(ctx); ok {
		return name
	}
	return mod.Name()
}
