package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

var _ ports.GuestAllocator = (*guestAllocator)(nil)

// guestAllocator calls the guest's own allocator exports.
type guestAllocator struct {
	mod   api.Module
	names entities.AllocatorConfig
}

func newGuestAllocator(mod api.Module, names entities.AllocatorConfig) *guestAllocator {
	return &guestAllocator{mod: mod, names: names}
}

func (g *guestAllocator) call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if name == "" {
		return nil, fmt.Errorf("guest allocator function not configured")
	}
	fn := g.mod.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("guest does not export %q", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return results, nil
}

func (g *guestAllocator) Malloc(ctx context.Context, size uint32) (uint32, error) {
	results, err := g.call(ctx, g.names.Alloc, api.EncodeU32(size))
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("%s returned no result", g.names.Alloc)
	}
	return api.DecodeU32(results[0]), nil
}

func (g *guestAllocator) Realloc(ctx context.Context, ptr, size uint32) (uint32, error) {
	results, err := g.call(ctx, g.names.Realloc, api.EncodeU32(ptr), api.EncodeU32(size))
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("%s returned no result", g.names.Realloc)
	}
	return api.DecodeU32(results[0]), nil
}

func (g *guestAllocator) Free(ctx context.Context, ptr uint32) error {
	_, err := g.call(ctx, g.names.Free, api.EncodeU32(ptr))
	return err
}
