package hostfuncs

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
)

var (
	ErrModuleTableFull  = errors.New("module table full")
	ErrBindingTableFull = errors.New("binding table full")
)

// ModuleRegistry is the two-level table backing the bridge: loaded native
// modules, each owning the bindings resolved against it.
//
// Every method ending in Locked requires mu to be held. A module entry exists
// exactly as long as it has at least one binding; the last removal detaches
// the entry in the same critical section.
//
// Generations are counted per (module slot, binding slot) and survive the
// entries that occupy a slot. A binding slot whose generation reaches
// MaxGeneration is retired instead of reused, so a handle, once released,
// never names a live binding again.
type ModuleRegistry struct {
	byNative    map[uintptr]*moduleEntry
	byName      map[string]*moduleEntry
	modules     []moduleSlot
	freeModules []uint16
	maxModules  int
	maxBindings int
	bindings    int
	mu          sync.Mutex
}

type moduleSlot struct {
	entry *moduleEntry
	// generations holds the last generation issued per binding slot.
	generations []uint16
}

type bindingSlot struct {
	binding    *FunctionBinding
	generation uint16
}

type moduleEntry struct {
	name string
	// names lists name followed by its aliases. It is replaced, never
	// mutated, so bindings can read it without the registry lock.
	names        atomic.Pointer[[]string]
	byFunc       map[uintptr]uint16
	bindings     []bindingSlot
	freeBindings []uint16
	inflight     sync.WaitGroup
	native       uintptr
	count        int
	slot         uint16
}

// RegistryStats is a snapshot of registry occupancy.
type RegistryStats struct {
	Modules  int
	Bindings int
}

// NewModuleRegistry creates a registry with the given capacities, clamped to
// what a Handle can address.
func NewModuleRegistry(maxModules, maxBindings int) *ModuleRegistry {
	if maxModules <= 0 || maxModules > entities.MaxSlots {
		maxModules = entities.MaxSlots
	}
	if maxBindings <= 0 || maxBindings > entities.MaxSlots {
		maxBindings = entities.MaxSlots
	}
	return &ModuleRegistry{
		byNative:    make(map[uintptr]*moduleEntry),
		byName:      make(map[string]*moduleEntry),
		modules:     make([]moduleSlot, 1, 16),
		maxModules:  maxModules,
		maxBindings: maxBindings,
	}
}

// Stats returns current occupancy.
func (r *ModuleRegistry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RegistryStats{Modules: len(r.byNative), Bindings: r.bindings}
}

// nextGenerationLocked issues the next generation of binding slot idx in
// module slot slot. Generations start at 1.
func (r *ModuleRegistry) nextGenerationLocked(slot, idx uint16) uint16 {
	ms := &r.modules[slot]
	for int(idx) >= len(ms.generations) {
		ms.generations = append(ms.generations, 0)
	}
	ms.generations[idx]++
	return ms.generations[idx]
}

func (r *ModuleRegistry) retiredLocked(slot, idx uint16) bool {
	gens := r.modules[slot].generations
	return int(idx) < len(gens) && gens[idx] >= entities.MaxGeneration
}

// exhaustedLocked reports whether every binding slot of a module slot is retired.
func (r *ModuleRegistry) exhaustedLocked(slot uint16) bool {
	for idx := 1; idx <= r.maxBindings; idx++ {
		if !r.retiredLocked(slot, uint16(idx)) {
			return false
		}
	}
	return true
}

func (r *ModuleRegistry) moduleByNameLocked(name string) *moduleEntry {
	return r.byName[name]
}

func (r *ModuleRegistry) moduleByNativeLocked(native uintptr) *moduleEntry {
	return r.byNative[native]
}

// aliasLocked makes an existing module reachable under another name.
func (r *ModuleRegistry) aliasLocked(m *moduleEntry, name string) {
	if _, ok := r.byName[name]; ok {
		return
	}
	r.byName[name] = m
	prev := *m.names.Load()
	names := make([]string, len(prev), len(prev)+1)
	copy(names, prev)
	names = append(names, name)
	m.names.Store(&names)
}

// insertModuleLocked creates an empty module entry. The caller must add a
// binding before releasing the lock.
func (r *ModuleRegistry) insertModuleLocked(name string, native uintptr) (*moduleEntry, error) {
	var slot uint16
	switch {
	case len(r.freeModules) > 0:
		slot = r.freeModules[len(r.freeModules)-1]
		r.freeModules = r.freeModules[:len(r.freeModules)-1]
	case len(r.modules)-1 < r.maxModules:
		r.modules = append(r.modules, moduleSlot{})
		slot = uint16(len(r.modules) - 1)
	default:
		return nil, ErrModuleTableFull
	}

	m := &moduleEntry{
		name:     name,
		native:   native,
		slot:     slot,
		byFunc:   make(map[uintptr]uint16),
		bindings: make([]bindingSlot, 1, 8),
	}
	m.names.Store(&[]string{name})
	r.modules[slot].entry = m
	r.byNative[native] = m
	r.byName[name] = m
	return m, nil
}

// removeModuleLocked detaches a module entry from every index.
func (r *ModuleRegistry) removeModuleLocked(m *moduleEntry) {
	delete(r.byNative, m.native)
	for _, name := range *m.names.Load() {
		delete(r.byName, name)
	}
	r.modules[m.slot].entry = nil
	if !r.exhaustedLocked(m.slot) {
		r.freeModules = append(r.freeModules, m.slot)
	}
}

// lookupBindingLocked returns the handle of an existing binding for fn.
func (r *ModuleRegistry) lookupBindingLocked(m *moduleEntry, fn uintptr) (entities.Handle, bool) {
	idx, ok := m.byFunc[fn]
	if !ok {
		return entities.NoBinding, false
	}
	return entities.NewHandle(m.bindings[idx].generation, m.slot, idx), true
}

// insertBindingLocked stores b in m and returns its handle.
func (r *ModuleRegistry) insertBindingLocked(m *moduleEntry, b *FunctionBinding) (entities.Handle, error) {
	idx, ok := r.claimBindingSlotLocked(m)
	if !ok {
		return entities.NoBinding, ErrBindingTableFull
	}

	gen := r.nextGenerationLocked(m.slot, idx)
	b.module = m
	m.bindings[idx] = bindingSlot{binding: b, generation: gen}
	m.byFunc[b.fn] = idx
	m.count++
	r.bindings++
	return entities.NewHandle(gen, m.slot, idx), nil
}

// claimBindingSlotLocked picks a free binding slot of m, skipping retired ones.
func (r *ModuleRegistry) claimBindingSlotLocked(m *moduleEntry) (uint16, bool) {
	if n := len(m.freeBindings); n > 0 {
		idx := m.freeBindings[n-1]
		m.freeBindings = m.freeBindings[:n-1]
		return idx, true
	}
	for len(m.bindings)-1 < r.maxBindings {
		m.bindings = append(m.bindings, bindingSlot{})
		idx := uint16(len(m.bindings) - 1)
		if !r.retiredLocked(m.slot, idx) {
			return idx, true
		}
	}
	return 0, false
}

// resolveLocked maps a handle to its live binding.
func (r *ModuleRegistry) resolveLocked(h entities.Handle) (*FunctionBinding, bool) {
	if h == entities.NoBinding {
		return nil, false
	}
	ms := int(h.ModuleSlot())
	if ms == 0 || ms >= len(r.modules) {
		return nil, false
	}
	m := r.modules[ms].entry
	if m == nil {
		return nil, false
	}
	bs := int(h.BindingSlot())
	if bs == 0 || bs >= len(m.bindings) {
		return nil, false
	}
	slot := m.bindings[bs]
	if slot.binding == nil || slot.generation != h.Generation() {
		return nil, false
	}
	return slot.binding, true
}

// removeBindingLocked drops the binding named by h. When it was the module's
// last binding the module entry is detached and returned for unloading.
func (r *ModuleRegistry) removeBindingLocked(h entities.Handle) (b *FunctionBinding, detached *moduleEntry, ok bool) {
	b, ok = r.resolveLocked(h)
	if !ok {
		return nil, nil, false
	}
	m := b.module
	idx := h.BindingSlot()
	delete(m.byFunc, b.fn)
	m.bindings[idx] = bindingSlot{}
	if !r.retiredLocked(m.slot, idx) {
		m.freeBindings = append(m.freeBindings, idx)
	}
	m.count--
	r.bindings--

	if m.count == 0 {
		r.removeModuleLocked(m)
		return b, m, true
	}
	return b, nil, true
}

// detachAllLocked empties the registry and returns every module entry.
// Slot generations are kept.
func (r *ModuleRegistry) detachAllLocked() []*moduleEntry {
	var out []*moduleEntry
	for i := 1; i < len(r.modules); i++ {
		if m := r.modules[i].entry; m != nil {
			out = append(out, m)
			r.removeModuleLocked(m)
		}
	}
	r.bindings = 0
	return out
}
