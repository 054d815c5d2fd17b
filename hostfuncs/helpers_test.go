package hostfuncs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/internal/testutil"
)

const (
	memSize = 64 * 1024

	moduleAddr uint32 = 0x100
	symbolAddr uint32 = 0x200
	codesAddr  uint32 = 0x300
	argsAddr   uint32 = 0x400
	resultAddr uint32 = 0x500
	dataAddr   uint32 = 0x1000
	heapStart  uint32 = 0x8000

	fnAdd    uintptr = 0xF000
	fnSub    uintptr = 0xF010
	fnStrlen uintptr = 0xF020
	fnEcho   uintptr = 0xF030
	fnWild   uintptr = 0xF040
	fnSum64  uintptr = 0xF050
	fnByte   uintptr = 0xF060
	fnVoid   uintptr = 0xF070
	fnCount  uintptr = 0xF080
)

var (
	i8  = entities.NewTypeCode(entities.KindInt8)
	i16 = entities.NewTypeCode(entities.KindInt16)
	i32 = entities.NewTypeCode(entities.KindInt32)
	i64 = entities.NewTypeCode(entities.KindInt64)
)

type fixture struct {
	mem    *testutil.Memory
	loader *testutil.Loader
	caller *testutil.Caller
	bridge *Bridge
}

func newFixture(t *testing.T, opts ...BridgeOption) *fixture {
	t.Helper()
	f := &fixture{
		mem:    testutil.NewMemory(memSize),
		loader: testutil.NewLoader(),
		caller: testutil.NewCaller(15),
	}
	f.loader.AddModule("m", map[string]uintptr{
		"f":      fnAdd,
		"g":      fnSub,
		"strlen": fnStrlen,
		"echo":   fnEcho,
		"wild":   fnWild,
		"sum64":  fnSum64,
		"byte":   fnByte,
		"void":   fnVoid,
		"count":  fnCount,
	})
	f.caller.Register(fnAdd, func(a []uintptr) uintptr { return uintptr(int64(int32(a[0]) + int32(a[1]))) })
	f.caller.Register(fnSub, func(a []uintptr) uintptr { return uintptr(int64(int32(a[0]) - int32(a[1]))) })
	f.caller.Register(fnStrlen, func(a []uintptr) uintptr {
		off, ok := f.mem.NativeToApp(a[0])
		if !ok {
			return 0
		}
		s, _ := f.mem.ReadAppString(off, memSize)
		return uintptr(len(s))
	})
	f.caller.Register(fnEcho, func(a []uintptr) uintptr { return a[0] })
	f.caller.Register(fnWild, func([]uintptr) uintptr { return 0xdead0000 })
	f.caller.Register(fnSum64, func(a []uintptr) uintptr { return a[0] + a[1] })
	f.caller.Register(fnByte, func([]uintptr) uintptr { return 0x1ff })
	f.caller.Register(fnVoid, func([]uintptr) uintptr { return 42 })
	f.caller.Register(fnCount, func(a []uintptr) uintptr { return uintptr(len(a)) })

	opts = append([]BridgeOption{WithLoader(f.loader), WithCaller(f.caller)}, opts...)
	b, err := NewBridge(opts...)
	require.NoError(t, err)
	f.bridge = b
	return f
}

// bindRequest writes names and parameter codes into guest memory.
func (f *fixture) bindRequest(module, symbol string, ret entities.TypeCode, params ...entities.TypeCode) BindRequest {
	f.mem.PutString(moduleAddr, module)
	f.mem.PutString(symbolAddr, symbol)
	words := make([]uint32, len(params))
	for i, p := range params {
		words[i] = uint32(p)
	}
	f.mem.PutWords(codesAddr, words...)
	return BindRequest{
		ModuleAddr: moduleAddr,
		FunctionID: symbolAddr,
		ReturnCode: uint32(ret),
		ParamCount: uint32(len(params)),
		ArgsAddr:   codesAddr,
	}
}

func (f *fixture) bind(t *testing.T, module, symbol string, ret entities.TypeCode, params ...entities.TypeCode) entities.Handle {
	t.Helper()
	h, err := f.bridge.Bind(context.Background(), f.mem, f.bindRequest(module, symbol, ret, params...))
	require.NoError(t, err)
	require.NotEqual(t, entities.NoBinding, h)
	return h
}

// invoke writes words as the argument stream and calls h with argc arguments.
func (f *fixture) invoke(h entities.Handle, argc uint32, words ...uint32) (uint64, error) {
	f.mem.PutWords(argsAddr, words...)
	return f.bridge.Invoke(context.Background(), f.mem, InvokeRequest{
		Handle:     h,
		ArgCount:   argc,
		ArgsAddr:   argsAddr,
		ResultAddr: resultAddr,
	})
}
