package hostfuncs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestNameContext(t *testing.T) {
	_, ok := GuestNameFromContext(context.Background())
	assert.False(t, ok)

	_, ok = GuestNameFromContext(WithGuestName(context.Background(), ""))
	assert.False(t, ok)

	name, ok := GuestNameFromContext(WithGuestName(context.Background(), "plugin"))
	assert.True(t, ok)
	assert.Equal(t, "plugin", name)
}

func TestCallContext(t *testing.T) {
	b := testBinding()
	ctx, cancel := context.WithTimeout(WithGuestName(context.Background(), "g"), time.Minute)
	defer cancel()

	cc := NewCallContext(ctx, b)
	assert.Same(t, b, cc.Binding())

	_, ok := cc.GetValue("k")
	assert.False(t, ok)
	cc.SetValue("k", 42)
	v, ok := cc.GetValue("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	// Embedded context behavior is preserved.
	_, hasDeadline := cc.Deadline()
	assert.True(t, hasDeadline)
	name, _ := GuestNameFromContext(cc)
	assert.Equal(t, "g", name)

	assert.Same(t, cc, CallContextFrom(cc))
	assert.Nil(t, CallContextFrom(context.Background()))
}
