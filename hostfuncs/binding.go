package hostfuncs

import (
	"github.com/reglet-dev/reglet-oscall/domain/entities"
)

// FunctionBinding is one resolved native function plus the call signature the
// guest declared for it. Fields are immutable after creation.
type FunctionBinding struct {
	module *moduleEntry
	symbol string
	sig    entities.Signature
	fn     uintptr
}

// Symbol returns the symbol name, or "#<ordinal>" for ordinal binds.
func (b *FunctionBinding) Symbol() string {
	return b.symbol
}

// ModuleName returns the name the owning module was loaded under.
func (b *FunctionBinding) ModuleName() string {
	return b.module.name
}

// ModuleNames returns every name the owning module is known under, starting
// with the one it was loaded under. The slice must not be modified.
func (b *FunctionBinding) ModuleNames() []string {
	if names := b.module.names.Load(); names != nil {
		return *names
	}
	return []string{b.module.name}
}

// Signature returns the declared call signature.
func (b *FunctionBinding) Signature() entities.Signature {
	return b.sig
}

// NativeFunction returns the resolved function address.
func (b *FunctionBinding) NativeFunction() uintptr {
	return b.fn
}
