package hostfuncs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
)

func newTestBinding(fn uintptr) *FunctionBinding {
	return &FunctionBinding{fn: fn, symbol: "s", sig: entities.Signature{Return: i32}}
}

func TestModuleRegistry_InsertResolveRemove(t *testing.T) {
	r := NewModuleRegistry(0, 0)
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.insertModuleLocked("m", 0x10)
	require.NoError(t, err)
	h1, err := r.insertBindingLocked(m, newTestBinding(0x100))
	require.NoError(t, err)
	h2, err := r.insertBindingLocked(m, newTestBinding(0x200))
	require.NoError(t, err)

	assert.NotEqual(t, entities.NoBinding, h1)
	assert.Equal(t, uint16(1), h1.ModuleSlot())
	assert.Equal(t, uint16(1), h1.BindingSlot())
	assert.Equal(t, uint16(2), h2.BindingSlot())
	assert.Equal(t, uint16(1), h1.Generation())
	assert.Equal(t, uint16(1), h2.Generation())

	b, ok := r.resolveLocked(h1)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x100), b.NativeFunction())
	assert.Equal(t, "m", b.ModuleName())

	got, ok := r.lookupBindingLocked(m, 0x200)
	require.True(t, ok)
	assert.Equal(t, h2, got)

	_, detached, ok := r.removeBindingLocked(h1)
	require.True(t, ok)
	assert.Nil(t, detached)
	_, ok = r.resolveLocked(h1)
	assert.False(t, ok)

	_, detached, ok = r.removeBindingLocked(h2)
	require.True(t, ok)
	assert.Same(t, m, detached)
	assert.Nil(t, r.moduleByNameLocked("m"))
	assert.Nil(t, r.moduleByNativeLocked(0x10))
	assert.Zero(t, r.bindings)
}

func TestModuleRegistry_SlotReuseChangesGeneration(t *testing.T) {
	r := NewModuleRegistry(0, 0)
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.insertModuleLocked("m", 0x10)
	require.NoError(t, err)
	keep, err := r.insertBindingLocked(m, newTestBinding(0x100))
	require.NoError(t, err)
	old, err := r.insertBindingLocked(m, newTestBinding(0x200))
	require.NoError(t, err)
	_, _, ok := r.removeBindingLocked(old)
	require.True(t, ok)

	fresh, err := r.insertBindingLocked(m, newTestBinding(0x300))
	require.NoError(t, err)
	assert.Equal(t, old.BindingSlot(), fresh.BindingSlot())
	assert.NotEqual(t, old, fresh)

	_, ok = r.resolveLocked(old)
	assert.False(t, ok)
	_, ok = r.resolveLocked(keep)
	assert.True(t, ok)
}

func TestModuleRegistry_Capacity(t *testing.T) {
	r := NewModuleRegistry(1, 1)
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.insertModuleLocked("a", 0x10)
	require.NoError(t, err)
	_, err = r.insertModuleLocked("b", 0x20)
	assert.ErrorIs(t, err, ErrModuleTableFull)

	_, err = r.insertBindingLocked(m, newTestBinding(0x100))
	require.NoError(t, err)
	_, err = r.insertBindingLocked(m, newTestBinding(0x200))
	assert.ErrorIs(t, err, ErrBindingTableFull)
}

func TestModuleRegistry_Alias(t *testing.T) {
	r := NewModuleRegistry(0, 0)
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.insertModuleLocked("libm.so.6", 0x10)
	require.NoError(t, err)
	h, err := r.insertBindingLocked(m, newTestBinding(0x100))
	require.NoError(t, err)

	r.aliasLocked(m, "/lib/libm.so.6")
	assert.Same(t, m, r.moduleByNameLocked("/lib/libm.so.6"))

	_, _, ok := r.removeBindingLocked(h)
	require.True(t, ok)
	assert.Nil(t, r.moduleByNameLocked("/lib/libm.so.6"))
	assert.Nil(t, r.moduleByNameLocked("libm.so.6"))
}

func TestModuleRegistry_GenerationWraps(t *testing.T) {
	r := NewModuleRegistry(0, 0)
	r.generation = entities.MaxGeneration
	r.mu.Lock()
	defer r.mu.Unlock()

	assert.Equal(t, uint16(1), r.nextGenerationLocked())
}

func TestModuleRegistry_Stats(t *testing.T) {
	r := NewModuleRegistry(0, 0)
	r.mu.Lock()
	m, err := r.insertModuleLocked("m", 0x10)
	require.NoError(t, err)
	_, err = r.insertBindingLocked(m, newTestBinding(0x100))
	require.NoError(t, err)
	r.mu.Unlock()

	assert.Equal(t, RegistryStats{Modules: 1, Bindings: 1}, r.Stats())
}

func TestModuleRegistry_RetiresExhaustedSlot(t *testing.T) {
	r := NewModuleRegistry(0, 2)
	r.mu.Lock()
	defer r.mu.Unlock()

	var first entities.Handle
	seen := make(map[entities.Handle]bool)
	for i := 0; i < entities.MaxGeneration+1; i++ {
		m, err := r.insertModuleLocked("m", 0x10)
		require.NoError(t, err)
		h, err := r.insertBindingLocked(m, newTestBinding(0x100))
		require.NoError(t, err)
		require.False(t, seen[h], "handle %#x issued twice", uint32(h))
		seen[h] = true
		if i == 0 {
			first = h
		}
		_, detached, ok := r.removeBindingLocked(h)
		require.True(t, ok)
		require.Same(t, m, detached)
	}

	// Slot 1 ran through every generation and moved on to slot 2.
	assert.Equal(t, uint16(1), first.BindingSlot())
	assert.True(t, r.retiredLocked(first.ModuleSlot(), 1))
	_, ok := r.resolveLocked(first)
	assert.False(t, ok)
}

func TestModuleRegistry_ExhaustedTableFails(t *testing.T) {
	r := NewModuleRegistry(1, 1)
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < entities.MaxGeneration; i++ {
		m, err := r.insertModuleLocked("m", 0x10)
		require.NoError(t, err)
		h, err := r.insertBindingLocked(m, newTestBinding(0x100))
		require.NoError(t, err)
		_, _, ok := r.removeBindingLocked(h)
		require.True(t, ok)
	}

	_, err := r.insertModuleLocked("m", 0x10)
	assert.ErrorIs(t, err, ErrModuleTableFull)
}

func TestModuleRegistry_CloseKeepsGenerations(t *testing.T) {
	r := NewModuleRegistry(0, 0)
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.insertModuleLocked("m", 0x10)
	require.NoError(t, err)
	old, err := r.insertBindingLocked(m, newTestBinding(0x100))
	require.NoError(t, err)

	assert.Equal(t, []*moduleEntry{m}, r.detachAllLocked())

	m, err = r.insertModuleLocked("m", 0x10)
	require.NoError(t, err)
	fresh, err := r.insertBindingLocked(m, newTestBinding(0x100))
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)
	_, ok := r.resolveLocked(old)
	assert.False(t, ok)
}
