//go:build windows

package native

const maxArgs = 16
