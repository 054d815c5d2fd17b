package hostfuncs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{&domainerrors.UnknownBindingError{Handle: 5}, StatusUnknownBinding},
		{fmt.Errorf("wrapped: %w", &domainerrors.UnknownBindingError{}), StatusUnknownBinding},
		{&domainerrors.ArityMismatchError{Want: 2, Got: 3}, StatusArityMismatch},
		{&domainerrors.NativeCallError{Symbol: "f", Err: errors.New("x")}, StatusNativeCall},
		{errors.New("anything else"), StatusNativeCall},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFromError(tt.err), "%v", tt.err)
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "unknown binding", StatusUnknownBinding.String())
	assert.Equal(t, "arity mismatch", StatusArityMismatch.String())
	assert.Equal(t, "native call failed", StatusNativeCall.String())
	assert.Equal(t, "unknown status", Status(9).String())
}

func TestIsGuestFault(t *testing.T) {
	assert.True(t, IsGuestFault(invalidAddr("op", 1, 4)))
	assert.True(t, IsGuestFault(fmt.Errorf("ctx: %w", invalidAddr("op", 1, 4))))
	assert.False(t, IsGuestFault(&domainerrors.UnknownBindingError{}))
	assert.False(t, IsGuestFault(nil))
}
