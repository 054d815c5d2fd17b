package ports

import "context"

// GuestAllocator is the sandbox-owned heap of a guest instance.
// Offsets returned are guest offsets; 0 means no allocation.
type GuestAllocator interface {
	Malloc(ctx context.Context, size uint32) (uint32, error)
	Realloc(ctx context.Context, ptr, size uint32) (uint32, error)
	Free(ctx context.Context, ptr uint32) error
}
