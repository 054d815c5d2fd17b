// Package testutil provides common test utilities, assertions and in-memory
// fakes of the bridge ports.
package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
)

// RequireNoError is a convenience wrapper for require.NoError
func RequireNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	require.NoError(t, err, msgAndArgs...)
}

// RequireErrorIs is a convenience wrapper for require.ErrorIs
func RequireErrorIs(t *testing.T, err, target error, msgAndArgs ...interface{}) {
	t.Helper()
	require.ErrorIs(t, err, target, msgAndArgs...)
}

// AssertEqual is a convenience wrapper for assert.Equal
func AssertEqual(t *testing.T, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, expected, actual, msgAndArgs...)
}

// AssertGuestFault asserts that err is an out-of-bounds guest access and that
// the guest exception was raised with the standard message.
func AssertGuestFault(t *testing.T, mem *Memory, err error) {
	t.Helper()
	require.Error(t, err)
	var ia *domainerrors.InvalidGuestAddressError
	assert.True(t, errors.As(err, &ia), "expected InvalidGuestAddressError, got %T: %v", err, err)
	assert.Equal(t, domainerrors.ErrInvalidGuestAddress.Error(), mem.Exception())
}

// AssertNoException asserts that the guest exception was not raised.
func AssertNoException(t *testing.T, mem *Memory) {
	t.Helper()
	assert.Empty(t, mem.Exception(), "unexpected guest exception")
}

// AssertNotPanics is a convenience wrapper for assert.NotPanics
func AssertNotPanics(t *testing.T, f func(), msgAndArgs ...interface{}) {
	t.Helper()
	assert.NotPanics(t, f, msgAndArgs...)
}
