package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
)

func TestInvalidGuestAddressError(t *testing.T) {
	err := &InvalidGuestAddressError{Op: "wcall", Offset: 0x10000, Size: 8}

	assert.Equal(t, "wcall: out of bounds memory access at 0x10000 (+8)", err.Error())
	assert.ErrorIs(t, err, ErrInvalidGuestAddress)

	d := err.ToErrorDetail()
	assert.Equal(t, "memory", d.Type)
	assert.Equal(t, uint32(0x10000), d.Details["offset"])
}

func TestInvalidGuestAddressError_NoOp(t *testing.T) {
	err := &InvalidGuestAddressError{Offset: 4, Size: 1}
	assert.Equal(t, "out of bounds memory access at 0x4 (+1)", err.Error())
}

func TestResolutionError(t *testing.T) {
	base := fmt.Errorf("no such file")

	tests := []struct {
		name string
		err  *ResolutionError
		want string
	}{
		{"module and cause", &ResolutionError{Module: "libx.so", Err: base}, "resolve libx.so: no such file"},
		{"symbol and reason", &ResolutionError{Module: "libc.so.6", Symbol: "nope", Reason: "not found"}, "resolve libc.so.6!nope: not found"},
		{"reason and cause", &ResolutionError{Module: "m", Reason: "denied", Err: base}, "resolve m: denied: no such file"},
		{"bare", &ResolutionError{Module: "m"}, "resolve m failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrResolution)
		})
	}

	err := &ResolutionError{Module: "libx.so", Err: base}
	assert.ErrorIs(t, err, base)
	assert.True(t, err.ToErrorDetail().IsNotFound)
}

func TestUnknownBindingError(t *testing.T) {
	err := &UnknownBindingError{Handle: entities.NewHandle(1, 2, 3)}

	assert.ErrorIs(t, err, ErrUnknownBinding)
	assert.NotErrorIs(t, err, ErrArityMismatch)
	assert.Contains(t, err.Error(), "unknown binding handle 0x")
	assert.Equal(t, "binding", err.ToErrorDetail().Type)
}

func TestArityMismatchError(t *testing.T) {
	err := &ArityMismatchError{Handle: 1, Want: 2, Got: 3}

	assert.Equal(t, "binding 0x1 expects 2 arguments, got 3", err.Error())
	assert.ErrorIs(t, err, ErrArityMismatch)
	assert.Equal(t, 3, err.ToErrorDetail().Details["got"])
}

func TestNativeCallError(t *testing.T) {
	base := &CapabilityError{Required: "native:libc.so.6", Pattern: "system"}
	err := &NativeCallError{Symbol: "system", Err: base}

	assert.Equal(t, "native call system: missing capability: native:libc.so.6 (pattern: system)", err.Error())
	assert.ErrorIs(t, err, ErrNativeCall)

	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "system", capErr.Pattern)
}

func TestCapabilityError_NoPattern(t *testing.T) {
	err := &CapabilityError{Required: "native:libm.so.6"}
	assert.Equal(t, "missing capability: native:libm.so.6", err.Error())
	assert.Equal(t, "native:libm.so.6", err.ToErrorDetail().Code)
}

func TestConfigError(t *testing.T) {
	baseErr := fmt.Errorf("must be at most 16")
	err := &ConfigError{Field: "max_parameters", Err: baseErr}

	assert.Equal(t, "config validation failed for field 'max_parameters': must be at most 16", err.Error())
	assert.True(t, errors.Is(err, baseErr))

	var confErr *ConfigError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, "max_parameters", confErr.Field)
}

func TestConfigError_NoField(t *testing.T) {
	err := &ConfigError{Err: fmt.Errorf("bad yaml")}
	assert.Equal(t, "config validation failed: bad yaml", err.Error())
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	plain := ToErrorDetail(fmt.Errorf("boom"))
	assert.Equal(t, "internal", plain.Type)
	assert.Equal(t, "boom", plain.Message)

	wrapped := ToErrorDetail(fmt.Errorf("bind: %w", &ArityMismatchError{Want: 1, Got: 0}))
	assert.Equal(t, "arity", wrapped.Type)

	detail := entities.NewErrorDetail("config", "bad").WithCode("x")
	assert.Same(t, detail, ToErrorDetail(fmt.Errorf("outer: %w", detail)))
}

func TestErrorUnwrapping(t *testing.T) {
	baseErr := fmt.Errorf("base error")

	tests := []struct {
		name string
		err  error
	}{
		{"ResolutionError", &ResolutionError{Module: "m", Err: baseErr}},
		{"NativeCallError", &NativeCallError{Symbol: "f", Err: baseErr}},
		{"ConfigError", &ConfigError{Field: "test", Err: baseErr}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, baseErr), "errors.Is should find base error")
			assert.Equal(t, baseErr, errors.Unwrap(tt.err))
		})
	}
}
