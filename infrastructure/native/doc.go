// Package native loads host shared libraries and calls into them.
//
// Loader implements ports.NativeLoader with the platform's dynamic loader:
// dlopen/dlsym/dlclose through purego on unix hosts, and
// LoadLibrary/GetProcAddress/FreeLibrary on Windows. Caller implements
// ports.NativeCaller with purego.SyscallN, the single C calling convention
// of the host, passing every argument as one integer register or stack slot.
package native
