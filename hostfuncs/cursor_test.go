package hostfuncs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
	"github.com/reglet-dev/reglet-oscall/internal/testutil"
)

func TestArgCursor_Next(t *testing.T) {
	mem := testutil.NewMemory(64)
	mem.PutWords(48, 1, 2, 3, 4)

	c, err := NewArgCursor(mem, "test", 48)
	require.NoError(t, err)

	for want := uint32(1); want <= 4; want++ {
		got, err := c.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// A failed read does not advance the cursor.
	for i := 0; i < 2; i++ {
		_, err = c.Next()
		var addrErr *domainerrors.InvalidGuestAddressError
		require.ErrorAs(t, err, &addrErr)
		assert.Equal(t, uint32(64), addrErr.Offset)
	}
}

func TestArgCursor_Next64(t *testing.T) {
	mem := testutil.NewMemory(16)
	mem.PutWords(0, 0x89ABCDEF, 0x01234567, 0xFFFFFFFF)

	c, err := NewArgCursor(mem, "test", 0)
	require.NoError(t, err)

	v, err := c.Next64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0123456789ABCDEF), v)

	// Only one and a half words remain before the end.
	c, err = NewArgCursor(mem, "test", 10)
	require.NoError(t, err)
	_, err = c.Next64()
	var ia *domainerrors.InvalidGuestAddressError
	require.ErrorAs(t, err, &ia)
	assert.Equal(t, "test", ia.Op)
	assert.Equal(t, uint32(14), ia.Offset)
}

func TestNewArgCursor_OutsideMemory(t *testing.T) {
	mem := testutil.NewMemory(16)
	_, err := NewArgCursor(mem, "test", 16)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidGuestAddress)
}
