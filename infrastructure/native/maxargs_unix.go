//go:build darwin || freebsd || linux || netbsd

package native

// purego.SyscallN passes at most 15 integer arguments on SysV and AAPCS64.
const maxArgs = 15
