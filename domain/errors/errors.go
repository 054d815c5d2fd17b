// Package errors provides domain-specific error types for the bridge.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// Sentinels matched by errors.Is against the concrete types below.
var (
	ErrInvalidGuestAddress = stdErrors.New("out of bounds memory access")
	ErrResolution          = stdErrors.New("native resolution failed")
	ErrUnknownBinding      = stdErrors.New("unknown binding")
	ErrArityMismatch       = stdErrors.New("arity mismatch")
	ErrNativeCall          = stdErrors.New("native call failed")
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// InvalidGuestAddressError reports a guest offset that failed bounds validation.
// It is always paired with raising the guest exception.
type InvalidGuestAddressError struct {
	Op     string
	Offset uint32
	Size   uint32
}

func (e *InvalidGuestAddressError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: out of bounds memory access at %#x (+%d)", e.Op, e.Offset, e.Size)
	}
	return fmt.Sprintf("out of bounds memory access at %#x (+%d)", e.Offset, e.Size)
}

func (e *InvalidGuestAddressError) Is(target error) bool {
	return target == ErrInvalidGuestAddress
}

// ToErrorDetail implements DetailedError.
func (e *InvalidGuestAddressError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "memory",
		Code:    e.Op,
		Details: map[string]any{"offset": e.Offset, "size": e.Size},
	}
}

// ResolutionError reports a module or symbol that could not be bound.
// Surfaced to the guest only as the "no binding" sentinel.
type ResolutionError struct {
	Err    error
	Module string
	Symbol string
	Reason string
}

func (e *ResolutionError) Error() string {
	target := e.Module
	if e.Symbol != "" {
		target = e.Module + "!" + e.Symbol
	}
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("resolve %s: %s: %v", target, e.Reason, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("resolve %s: %s", target, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("resolve %s: %v", target, e.Err)
	}
	return fmt.Sprintf("resolve %s failed", target)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// ToErrorDetail implements DetailedError.
func (e *ResolutionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "resolution", Code: e.Module, IsNotFound: true}
}

// UnknownBindingError reports a stale or forged handle.
type UnknownBindingError struct {
	Handle entities.Handle
}

func (e *UnknownBindingError) Error() string {
	return fmt.Sprintf("unknown binding handle %#x", uint32(e.Handle))
}

func (e *UnknownBindingError) Is(target error) bool {
	return target == ErrUnknownBinding
}

// ToErrorDetail implements DetailedError.
func (e *UnknownBindingError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "binding", IsNotFound: true}
}

// ArityMismatchError reports an invoke whose argument count differs from the binding.
type ArityMismatchError struct {
	Handle entities.Handle
	Want   int
	Got    int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("binding %#x expects %d arguments, got %d", uint32(e.Handle), e.Want, e.Got)
}

func (e *ArityMismatchError) Is(target error) bool {
	return target == ErrArityMismatch
}

// ToErrorDetail implements DetailedError.
func (e *ArityMismatchError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "arity",
		Details: map[string]any{"want": e.Want, "got": e.Got},
	}
}

// NativeCallError reports a call the trampoline refused or could not complete.
type NativeCallError struct {
	Err    error
	Symbol string
}

func (e *NativeCallError) Error() string {
	return fmt.Sprintf("native call %s: %v", e.Symbol, e.Err)
}

func (e *NativeCallError) Unwrap() error {
	return e.Err
}

func (e *NativeCallError) Is(target error) bool {
	return target == ErrNativeCall
}

// ToErrorDetail implements DetailedError.
func (e *NativeCallError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "native", Code: e.Symbol}
}

// CapabilityError represents a capability check failure.
type CapabilityError struct {
	Required string // Required capability (e.g., "native:libc.so.6")
	Pattern  string // Optional: specific pattern that was denied
}

func (e *CapabilityError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("missing capability: %s (pattern: %s)", e.Required, e.Pattern)
	}
	return fmt.Sprintf("missing capability: %s", e.Required)
}

// ToErrorDetail implements DetailedError.
func (e *CapabilityError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "capability", Code: e.Required}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}
