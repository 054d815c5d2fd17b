// Package abi is the guest side of the bridge's memory contract: a pinning
// heap in linear memory, exported to the host as allocate, deallocate and
// reallocate.
package abi

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// DefaultMaxTotalAllocations bounds the bytes a guest heap hands out.
const DefaultMaxTotalAllocations = 100 * 1024 * 1024

// ErrLimitExceeded is returned when an allocation would exceed the heap limit.
var ErrLimitExceeded = errors.New("abi: memory allocation limit exceeded")

// Heap keeps every block it hands out referenced, so the Go GC does not
// collect memory the host or native code still points into.
type Heap struct {
	ptrs  map[uintptr][]byte
	total int
	limit int
	mu    sync.Mutex
}

// NewHeap creates a heap with the given byte limit. A limit <= 0 selects
// DefaultMaxTotalAllocations.
func NewHeap(limit int) *Heap {
	if limit <= 0 {
		limit = DefaultMaxTotalAllocations
	}
	return &Heap{ptrs: make(map[uintptr][]byte), limit: limit}
}

// Alloc returns the address of a zeroed block of size bytes. Size 0 returns 0.
func (h *Heap) Alloc(size uint32) (uintptr, error) {
	if size == 0 {
		return 0, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocLocked(size)
}

func (h *Heap) allocLocked(size uint32) (uintptr, error) {
	if h.total+int(size) > h.limit {
		return 0, fmt.Errorf("%w (requested: %d bytes, current: %d bytes, limit: %d bytes)",
			ErrLimitExceeded, size, h.total, h.limit)
	}
	buf := make([]byte, size)
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	h.ptrs[ptr] = buf
	h.total += int(size)
	return ptr, nil
}

// Free releases a block. Unknown addresses are ignored.
func (h *Heap) Free(ptr uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.freeLocked(ptr)
}

func (h *Heap) freeLocked(ptr uintptr) []byte {
	buf, ok := h.ptrs[ptr]
	if !ok {
		return nil
	}
	delete(h.ptrs, ptr)
	h.total -= len(buf)
	return buf
}

// Realloc moves a block to a new one of size bytes, preserving the common
// prefix. A zero ptr behaves like Alloc. On failure the old block is kept.
func (h *Heap) Realloc(ptr uintptr, size uint32) (uintptr, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	old, ok := h.ptrs[ptr]
	if ptr != 0 && !ok {
		return 0, fmt.Errorf("abi: realloc of unknown block %#x", ptr)
	}
	if size == 0 {
		h.freeLocked(ptr)
		return 0, nil
	}
	np, err := h.allocLocked(size)
	if err != nil {
		return 0, err
	}
	copy(h.ptrs[np], old)
	h.freeLocked(ptr)
	return np, nil
}

// Bytes returns the block at ptr, or nil.
func (h *Heap) Bytes(ptr uintptr) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ptrs[ptr]
}

// Stats returns the number of live blocks and their total size.
func (h *Heap) Stats() (count, total int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ptrs), h.total
}

// Reset releases every block.
func (h *Heap) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ptrs = make(map[uintptr][]byte)
	h.total = 0
}

// Default is the heap behind the guest's allocator exports.
var Default = NewHeap(DefaultMaxTotalAllocations)

// CString returns s as a NUL-terminated byte slice.
func CString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
