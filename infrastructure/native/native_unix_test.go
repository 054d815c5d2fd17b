//go:build darwin || freebsd || linux || netbsd

package native

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func libcName() string {
	switch runtime.GOOS {
	case "darwin":
		return "/usr/lib/libSystem.B.dylib"
	case "freebsd":
		return "libc.so.7"
	case "netbsd":
		return "libc.so"
	}
	return "libc.so.6"
}

func openLibc(t *testing.T) (*Loader, uintptr) {
	t.Helper()
	l := NewLoader(WithLogger(zaptest.NewLogger(t)))
	h, err := l.Open(libcName())
	if err != nil {
		t.Skipf("libc unavailable: %v", err)
	}
	t.Cleanup(func() { _ = l.Close(h) })
	return l, h
}

func TestLoader_OpenMissing(t *testing.T) {
	l := NewLoader()
	_, err := l.Open("liboscall-does-not-exist.so")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dlopen")
}

func TestLoader_Symbol(t *testing.T) {
	l, h := openLibc(t)

	fn, err := l.Symbol(h, "strlen")
	require.NoError(t, err)
	assert.NotZero(t, fn)

	_, err = l.Symbol(h, "oscall_no_such_symbol")
	assert.Error(t, err)
}

func TestLoader_OrdinalUnsupported(t *testing.T) {
	l, h := openLibc(t)
	_, err := l.Ordinal(h, 1)
	assert.ErrorIs(t, err, ErrOrdinalUnsupported)
}

func TestCaller_Strlen(t *testing.T) {
	l, h := openLibc(t)
	fn, err := l.Symbol(h, "strlen")
	require.NoError(t, err)

	buf := []byte("hello, native\x00")
	c := NewCaller()
	ret, err := c.Call(fn, []uintptr{uintptr(unsafe.Pointer(&buf[0]))})
	runtime.KeepAlive(buf)
	require.NoError(t, err)
	assert.Equal(t, uintptr(13), ret)
}

func TestCaller_Limits(t *testing.T) {
	c := NewCaller()
	assert.Equal(t, 15, c.MaxArgs())

	_, err := c.Call(1, make([]uintptr, 16))
	assert.ErrorIs(t, err, ErrTooManyArguments)

	_, err = c.Call(0, nil)
	assert.Error(t, err)
}
