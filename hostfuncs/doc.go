// Package hostfuncs provides pure Go implementations of the native call bridge.
// These implementations have NO WASM runtime dependencies (no wazero/wasmtime):
// guest memory, the guest allocator, the native loader and the call trampoline
// are reached through the interfaces in domain/ports.
//
// The bridge lets a guest resolve a native function by module and symbol name
// at run time (Bind), call it with a declared signature (Invoke) and release it
// (Unbind). A module is unloaded when its last binding is released.
package hostfuncs
