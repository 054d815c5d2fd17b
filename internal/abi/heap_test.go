package abi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestHeap_AllocFree(t *testing.T) {
	h := NewHeap(0)

	p, err := h.Alloc(32)
	require.NoError(t, err)
	require.NotZero(t, p)
	assert.Equal(t, make([]byte, 32), h.Bytes(p))

	count, total := h.Stats()
	assert.Equal(t, 1, count)
	assert.Equal(t, 32, total)

	h.Free(p)
	h.Free(p)
	h.Free(0x1234)
	count, total = h.Stats()
	assert.Zero(t, count)
	assert.Zero(t, total)
}

func TestHeap_ZeroSize(t *testing.T) {
	h := NewHeap(0)
	p, err := h.Alloc(0)
	require.NoError(t, err)
	assert.Zero(t, p)
}

func TestHeap_Limit(t *testing.T) {
	h := NewHeap(1024)

	p, err := h.Alloc(512)
	require.NoError(t, err)

	_, err = h.Alloc(1024)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	h.Free(p)
	_, err = h.Alloc(1024)
	assert.NoError(t, err)
}

func TestHeap_Realloc(t *testing.T) {
	h := NewHeap(64)

	p, err := h.Alloc(4)
	require.NoError(t, err)
	copy(h.Bytes(p), "abcd")

	grown, err := h.Realloc(p, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd\x00\x00\x00\x00"), h.Bytes(grown))
	assert.Nil(t, h.Bytes(p))

	shrunk, err := h.Realloc(grown, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), h.Bytes(shrunk))

	// too large: the old block survives
	_, err = h.Realloc(shrunk, 128)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Equal(t, []byte("ab"), h.Bytes(shrunk))

	fresh, err := h.Realloc(0, 3)
	require.NoError(t, err)
	assert.Len(t, h.Bytes(fresh), 3)

	freed, err := h.Realloc(fresh, 0)
	require.NoError(t, err)
	assert.Zero(t, freed)

	_, err = h.Realloc(0xdead, 4)
	assert.Error(t, err)
}

func TestHeap_Concurrency(t *testing.T) {
	h := NewHeap(0)
	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			p, err := h.Alloc(24)
			if err != nil {
				return err
			}
			h.Free(p)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	count, _ := h.Stats()
	assert.Zero(t, count)
}

func TestHeap_Reset(t *testing.T) {
	h := NewHeap(0)
	_, _ = h.Alloc(8)
	_, _ = h.Alloc(8)
	h.Reset()
	count, total := h.Stats()
	assert.Zero(t, count)
	assert.Zero(t, total)
}

func TestCString(t *testing.T) {
	assert.True(t, bytes.Equal([]byte("libc.so.6\x00"), CString("libc.so.6")))
	assert.Equal(t, []byte{0}, CString(""))
}

func BenchmarkHeap_AllocFree(b *testing.B) {
	h := NewHeap(0)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p, _ := h.Alloc(256)
		h.Free(p)
	}
}
