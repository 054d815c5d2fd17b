package testutil

// A tiny wasm encoder for test guests. The guest imports every bridge
// function, re-exports each behind a wrapper, and provides a bump allocator.

type wasmFunc struct {
	name    string
	params  int
	results int
}

var bridgeImports = []wasmFunc{
	{"wwrap", 5, 1},
	{"wcall", 4, 1},
	{"wunwrap", 1, 1},
	{"malloc", 1, 1},
	{"calloc", 2, 1},
	{"realloc", 2, 1},
	{"free", 1, 0},
	{"abort", 1, 0},
}

// GuestHeapBase is the first offset handed out by the guest's allocate export.
const GuestHeapBase = heapBase

const (
	opLocalGet  = 0x20
	opGlobalGet = 0x23
	opGlobalSet = 0x24
	opCall      = 0x10
	opI32Const  = 0x41
	opI32Add    = 0x6a
	opEnd       = 0x0b
	valI32      = 0x7f
	heapBase    = 4096
)

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func wasmName(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func wasmVec(items [][]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func wasmSection(id byte, body []byte) []byte {
	out := append([]byte{id}, uleb(uint32(len(body)))...)
	return append(out, body...)
}

func funcType(params, results int) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint32(params))...)
	for i := 0; i < params; i++ {
		out = append(out, valI32)
	}
	out = append(out, uleb(uint32(results))...)
	for i := 0; i < results; i++ {
		out = append(out, valI32)
	}
	return out
}

func funcBody(code ...byte) []byte {
	body := append([]byte{0x00}, code...) // no locals
	return append(uleb(uint32(len(body))), body...)
}

// BuildGuest returns a module importing the bridge from hostModule.
// Exports: memory, allocate, deallocate, reallocate, and "call_<name>" for
// each bridge function.
func BuildGuest(hostModule string) []byte {
	var types, imports, funcs, exports, codes [][]byte

	for i, imp := range bridgeImports {
		types = append(types, funcType(imp.params, imp.results))
		imports = append(imports, append(append(wasmName(hostModule), wasmName(imp.name)...), 0x00, byte(i)))
	}

	nImports := len(bridgeImports)
	for i, imp := range bridgeImports {
		funcs = append(funcs, uleb(uint32(i)))
		var code []byte
		for p := 0; p < imp.params; p++ {
			code = append(code, opLocalGet, byte(p))
		}
		code = append(code, opCall, byte(i), opEnd)
		codes = append(codes, funcBody(code...))
		exports = append(exports, append(wasmName("call_"+imp.name), 0x00, byte(nImports+i)))
	}

	allocIdx := nImports + len(bridgeImports)
	allocType := len(types)
	types = append(types, funcType(1, 1), funcType(1, 0), funcType(2, 1))

	// allocate(size): old := heap; heap += size; return old
	funcs = append(funcs, uleb(uint32(allocType)))
	codes = append(codes, funcBody(opGlobalGet, 0, opGlobalGet, 0, opLocalGet, 0, opI32Add, opGlobalSet, 0, opEnd))
	exports = append(exports, append(wasmName("allocate"), 0x00, byte(allocIdx)))

	// deallocate(ptr): no-op
	funcs = append(funcs, uleb(uint32(allocType+1)))
	codes = append(codes, funcBody(opEnd))
	exports = append(exports, append(wasmName("deallocate"), 0x00, byte(allocIdx+1)))

	// reallocate(ptr, size): allocate(size)
	funcs = append(funcs, uleb(uint32(allocType+2)))
	codes = append(codes, funcBody(opLocalGet, 1, opCall, byte(allocIdx), opEnd))
	exports = append(exports, append(wasmName("reallocate"), 0x00, byte(allocIdx+2)))

	exports = append(exports, append(wasmName("memory"), 0x02, 0x00))

	global := append([]byte{valI32, 0x01, opI32Const}, sleb(heapBase)...)
	global = append(global, opEnd)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, wasmSection(1, wasmVec(types))...)
	out = append(out, wasmSection(2, wasmVec(imports))...)
	out = append(out, wasmSection(3, wasmVec(funcs))...)
	out = append(out, wasmSection(5, wasmVec([][]byte{{0x00, 0x01}}))...)
	out = append(out, wasmSection(6, wasmVec([][]byte{global}))...)
	out = append(out, wasmSection(7, wasmVec(exports))...)
	out = append(out, wasmSection(10, wasmVec(codes))...)
	return out
}
