// Package wazero exposes the native-call bridge to wazero guests.
//
// RegisterWithRuntime instantiates a host module (default name "os_call")
// whose functions forward to a hostfuncs.Bridge. Each call wraps the calling
// module's linear memory in an address translator, so guest offsets are
// validated and mapped to host addresses in place, and wraps the guest's own
// allocator exports for malloc, calloc, realloc and free.
//
// # Basic Usage
//
//	bridge, err := hostfuncs.NewBridge(
//	    hostfuncs.WithLoader(native.NewLoader()),
//	    hostfuncs.WithCaller(native.NewCaller()),
//	)
//	if err != nil {
//	    return err
//	}
//
//	runtime := wazero.NewRuntime(ctx)
//	err = wazero.RegisterWithRuntime(ctx, runtime, bridge)
//
// # Exceptions
//
// Out-of-bounds guest addresses and abort raise a guest exception: the host
// function panics with *GuestException and wazero fails the guest call with
// it. Use errors.As on the error returned by api.Function.Call to inspect it.
package wazero
