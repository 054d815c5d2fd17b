package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

var (
	_ ports.NativeLoader   = (*Loader)(nil)
	_ ports.NativeCaller   = (*Caller)(nil)
	_ ports.GuestAllocator = (*Heap)(nil)
)

// ErrNotFound is returned by Loader for unknown modules and symbols.
var ErrNotFound = errors.New("not found")

type fakeModule struct {
	symbols  map[string]uintptr
	ordinals map[uint16]uintptr
	handle   uintptr
	refs     int
	opens    int
}

// Loader is an in-memory NativeLoader with reference counting.
type Loader struct {
	modules map[string]*fakeModule
	handles map[uintptr]*fakeModule
	next    uintptr
	mu      sync.Mutex
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{
		modules: make(map[string]*fakeModule),
		handles: make(map[uintptr]*fakeModule),
		next:    0x1000,
	}
}

// AddModule registers a module exporting symbols.
func (l *Loader) AddModule(name string, symbols map[string]uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next += 0x1000
	m := &fakeModule{symbols: symbols, ordinals: map[uint16]uintptr{}, handle: l.next}
	l.modules[name] = m
	l.handles[m.handle] = m
}

// AddOrdinal exports fn at ordinal from a registered module.
func (l *Loader) AddOrdinal(name string, ordinal uint16, fn uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules[name].ordinals[ordinal] = fn
}

// AddAlias makes alias load the same module as name.
func (l *Loader) AddAlias(alias, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules[alias] = l.modules[name]
}

func (l *Loader) Open(name string) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.modules[name]
	if !ok {
		return 0, fmt.Errorf("open %s: %w", name, ErrNotFound)
	}
	m.refs++
	m.opens++
	return m.handle, nil
}

func (l *Loader) Symbol(module uintptr, name string) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.handles[module]
	if !ok || m.refs == 0 {
		return 0, errors.New("symbol lookup on unloaded module")
	}
	fn, ok := m.symbols[name]
	if !ok {
		return 0, fmt.Errorf("symbol %s: %w", name, ErrNotFound)
	}
	return fn, nil
}

func (l *Loader) Ordinal(module uintptr, ordinal uint16) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.handles[module]
	if !ok || m.refs == 0 {
		return 0, errors.New("ordinal lookup on unloaded module")
	}
	fn, ok := m.ordinals[ordinal]
	if !ok {
		return 0, fmt.Errorf("ordinal %d: %w", ordinal, ErrNotFound)
	}
	return fn, nil
}

func (l *Loader) Close(module uintptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.handles[module]
	if !ok || m.refs == 0 {
		return errors.New("close of unloaded module")
	}
	m.refs--
	return nil
}

// Refs returns the open reference count of a module.
func (l *Loader) Refs(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.modules[name]; ok {
		return m.refs
	}
	return 0
}

// Opens returns how many times a module was opened.
func (l *Loader) Opens(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.modules[name]; ok {
		return m.opens
	}
	return 0
}

// NativeFunc is a Go stand-in for a native function.
type NativeFunc func(args []uintptr) uintptr

// Caller dispatches native calls to registered Go functions.
type Caller struct {
	funcs   map[uintptr]NativeFunc
	maxArgs int
	calls   int
	mu      sync.Mutex
}

// NewCaller creates a caller accepting up to maxArgs arguments.
func NewCaller(maxArgs int) *Caller {
	return &Caller{funcs: make(map[uintptr]NativeFunc), maxArgs: maxArgs}
}

// Register installs impl at address fn.
func (c *Caller) Register(fn uintptr, impl NativeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[fn] = impl
}

func (c *Caller) Call(fn uintptr, args []uintptr) (uintptr, error) {
	c.mu.Lock()
	impl, ok := c.funcs[fn]
	c.calls++
	c.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("no function at %#x", fn)
	}
	return impl(append([]uintptr(nil), args...)), nil
}

func (c *Caller) MaxArgs() int {
	return c.maxArgs
}

// Calls returns how many calls were dispatched.
func (c *Caller) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Heap is a bump allocator over a Memory region.
type Heap struct {
	mem   *Memory
	freed []uint32
	next  uint32
	end   uint32
	fail  bool
	mu    sync.Mutex
}

// NewHeap allocates from [start, end) of mem.
func NewHeap(mem *Memory, start, end uint32) *Heap {
	return &Heap{mem: mem, next: start, end: end}
}

// FailNext makes allocations fail until reset with false.
func (h *Heap) FailNext(fail bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fail = fail
}

func (h *Heap) Malloc(_ context.Context, size uint32) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return 0, errors.New("out of memory")
	}
	aligned := (uint64(size) + 7) &^ 7
	if uint64(h.next)+aligned > uint64(h.end) {
		return 0, errors.New("out of memory")
	}
	ptr := h.next
	h.next += uint32(aligned)
	return ptr, nil
}

func (h *Heap) Realloc(ctx context.Context, ptr, size uint32) (uint32, error) {
	out, err := h.Malloc(ctx, size)
	if err != nil {
		return 0, err
	}
	if ptr != 0 {
		avail := h.mem.Size() - ptr
		n := min(size, avail)
		h.mem.Put(out, h.mem.Get(ptr, n))
	}
	return out, nil
}

func (h *Heap) Free(_ context.Context, ptr uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.freed = append(h.freed, ptr)
	return nil
}

// Freed returns the pointers passed to Free.
func (h *Heap) Freed() []uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uint32(nil), h.freed...)
}
