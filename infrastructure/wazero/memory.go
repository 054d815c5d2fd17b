package wazero

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

var _ ports.AddressTranslator = (*guestMemory)(nil)

// guestMemory translates between guest offsets and host addresses of one
// module's linear memory. The backing slice is re-read on every access since
// a call back into the guest may grow, and so move, the memory.
type guestMemory struct {
	mem       api.Memory
	exception string
}

func newGuestMemory(mod api.Module) *guestMemory {
	return &guestMemory{mem: mod.Memory()}
}

func (g *guestMemory) view() []byte {
	if g.mem == nil {
		return nil
	}
	buf, _ := g.mem.Read(0, g.mem.Size())
	return buf
}

func (g *guestMemory) base(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

func inRange(buf []byte, offset, size uint32) bool {
	return uint64(offset)+uint64(size) <= uint64(len(buf))
}

func (g *guestMemory) ValidateAppAddr(offset, size uint32) bool {
	return inRange(g.view(), offset, size)
}

func (g *guestMemory) ValidateAppString(offset, maxLen uint32) bool {
	_, ok := g.ReadAppString(offset, maxLen)
	return ok
}

func (g *guestMemory) ReadAppString(offset, maxLen uint32) (string, bool) {
	buf := g.view()
	if uint64(offset) >= uint64(len(buf)) {
		return "", false
	}
	end := min(uint64(offset)+uint64(maxLen), uint64(len(buf)))
	window := buf[offset:end]
	i := bytes.IndexByte(window, 0)
	if i < 0 {
		return "", false
	}
	return string(window[:i]), true
}

func (g *guestMemory) ValidateNativeAddr(ptr uintptr, size uint32) bool {
	off, ok := g.NativeToApp(ptr)
	return ok && g.ValidateAppAddr(off, size)
}

func (g *guestMemory) AppToNative(offset uint32) uintptr {
	return g.base(g.view()) + uintptr(offset)
}

func (g *guestMemory) NativeToApp(ptr uintptr) (uint32, bool) {
	buf := g.view()
	base := g.base(buf)
	if base == 0 || ptr < base || ptr-base >= uintptr(len(buf)) {
		return 0, false
	}
	return uint32(ptr - base), true
}

func (g *guestMemory) NativeAddrRange(ptr uintptr) (uintptr, uintptr, bool) {
	buf := g.view()
	base := g.base(buf)
	if base == 0 || ptr < base || ptr-base >= uintptr(len(buf)) {
		return 0, 0, false
	}
	return base, base + uintptr(len(buf)), true
}

func (g *guestMemory) ReadUint32(offset uint32) (uint32, bool) {
	buf := g.view()
	if !inRange(buf, offset, 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf[offset:]), true
}

func (g *guestMemory) WriteUint64(offset uint32, v uint64) bool {
	if g.mem == nil {
		return false
	}
	return g.mem.WriteUint64Le(offset, v)
}

func (g *guestMemory) Zero(offset, size uint32) bool {
	buf := g.view()
	if !inRange(buf, offset, size) {
		return false
	}
	clear(buf[offset : offset+size])
	return true
}

func (g *guestMemory) SetException(message string) {
	g.exception = message
}

// raise aborts the guest call when an exception was set during the host call.
func (g *guestMemory) raise() {
	if g.exception != "" {
		panic(&GuestException{Message: g.exception})
	}
}
