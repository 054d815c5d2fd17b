package hostfuncs

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

// Malloc allocates size bytes on the guest heap. It returns 0 on failure.
func (b *Bridge) Malloc(ctx context.Context, heap ports.GuestAllocator, size uint32) uint32 {
	ptr, err := heap.Malloc(ctx, size)
	if err != nil {
		b.logger.Warn("guest malloc failed", zap.Uint32("size", size), zap.Error(err))
		return 0
	}
	return ptr
}

// Calloc allocates a zeroed array of n elements. Requests whose total size
// reaches 2^32-1 are rejected without touching the heap.
func (b *Bridge) Calloc(ctx context.Context, mem ports.AddressTranslator, heap ports.GuestAllocator, n, size uint32) uint32 {
	total := uint64(n) * uint64(size)
	if total >= math.MaxUint32 {
		b.logger.Debug("guest calloc overflow", zap.Uint32("n", n), zap.Uint32("size", size))
		return 0
	}
	ptr := b.Malloc(ctx, heap, uint32(total))
	if ptr == 0 {
		return 0
	}
	if !mem.Zero(ptr, uint32(total)) {
		b.logger.Warn("guest calloc returned an invalid block", zap.Uint32("ptr", ptr), zap.Uint64("size", total))
		_ = heap.Free(ctx, ptr)
		return 0
	}
	return ptr
}

// Realloc resizes a guest heap block. It returns 0 on failure.
func (b *Bridge) Realloc(ctx context.Context, heap ports.GuestAllocator, ptr, size uint32) uint32 {
	out, err := heap.Realloc(ctx, ptr, size)
	if err != nil {
		b.logger.Warn("guest realloc failed", zap.Uint32("ptr", ptr), zap.Uint32("size", size), zap.Error(err))
		return 0
	}
	return out
}

// Free releases a guest heap block. Null pointers and pointers that do not
// address guest memory are ignored.
func (b *Bridge) Free(ctx context.Context, mem ports.AddressTranslator, heap ports.GuestAllocator, ptr uint32) {
	if ptr == 0 || !mem.ValidateAppAddr(ptr, wordSize) {
		return
	}
	if err := heap.Free(ctx, ptr); err != nil {
		b.logger.Warn("guest free failed", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

// Abort raises the guest exception "os.abort(<code>)".
func (b *Bridge) Abort(mem ports.AddressTranslator, code int32) error {
	msg := fmt.Sprintf("os.abort(%d)", code)
	mem.SetException(msg)
	b.logger.Info("guest aborted", zap.Int32("code", code))
	return errors.New(msg)
}
