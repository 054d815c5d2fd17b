package testutil

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

// DefaultBase is the fake native address of guest offset 0.
const DefaultBase uintptr = 0x7f0000000000

var _ ports.AddressTranslator = (*Memory)(nil)

// Memory is a byte-slice guest memory mapped at a fixed fake native base.
// Native addresses it hands out are never dereferenced.
type Memory struct {
	buf       []byte
	base      uintptr
	exception string
	reads     int
	mu        sync.Mutex
}

// NewMemory creates a zeroed guest memory of size bytes.
func NewMemory(size int) *Memory {
	return &Memory{buf: make([]byte, size), base: DefaultBase}
}

func (m *Memory) inRange(offset, size uint32) bool {
	return uint64(offset)+uint64(size) <= uint64(len(m.buf))
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.buf))
}

// Base returns the native address of offset 0.
func (m *Memory) Base() uintptr {
	return m.base
}

func (m *Memory) ValidateAppAddr(offset, size uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inRange(offset, size)
}

func (m *Memory) ValidateAppString(offset, maxLen uint32) bool {
	_, ok := m.ReadAppString(offset, maxLen)
	return ok
}

func (m *Memory) ReadAppString(offset, maxLen uint32) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint64(offset) >= uint64(len(m.buf)) {
		return "", false
	}
	end := uint64(offset) + uint64(maxLen)
	if end > uint64(len(m.buf)) {
		end = uint64(len(m.buf))
	}
	window := m.buf[offset:end]
	i := bytes.IndexByte(window, 0)
	if i < 0 {
		return "", false
	}
	return string(window[:i]), true
}

func (m *Memory) ValidateNativeAddr(ptr uintptr, size uint32) bool {
	off, ok := m.NativeToApp(ptr)
	return ok && m.ValidateAppAddr(off, size)
}

func (m *Memory) AppToNative(offset uint32) uintptr {
	return m.base + uintptr(offset)
}

func (m *Memory) NativeToApp(ptr uintptr) (uint32, bool) {
	if ptr < m.base || ptr-m.base >= uintptr(len(m.buf)) {
		return 0, false
	}
	return uint32(ptr - m.base), true
}

func (m *Memory) NativeAddrRange(ptr uintptr) (uintptr, uintptr, bool) {
	if _, ok := m.NativeToApp(ptr); !ok {
		return 0, 0, false
	}
	return m.base, m.base + uintptr(len(m.buf)), true
}

func (m *Memory) ReadUint32(offset uint32) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inRange(offset, 4) {
		return 0, false
	}
	m.reads++
	return binary.LittleEndian.Uint32(m.buf[offset:]), true
}

func (m *Memory) WriteUint64(offset uint32, v uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inRange(offset, 8) {
		return false
	}
	binary.LittleEndian.PutUint64(m.buf[offset:], v)
	return true
}

func (m *Memory) Zero(offset, size uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inRange(offset, size) {
		return false
	}
	clear(m.buf[offset : offset+size])
	return true
}

func (m *Memory) SetException(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exception = message
}

// Exception returns the last raised exception message.
func (m *Memory) Exception() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exception
}

// ClearException resets the exception state.
func (m *Memory) ClearException() {
	m.SetException("")
}

// Reads returns how many words were read through ReadUint32.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// PutString writes s with a NUL terminator at offset.
func (m *Memory) PutString(offset uint32, s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := copy(m.buf[offset:], s)
	m.buf[offset+uint32(n)] = 0
}

// PutWords writes little-endian words starting at offset.
func (m *Memory) PutWords(offset uint32, words ...uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range words {
		binary.LittleEndian.PutUint32(m.buf[offset+uint32(i*4):], w)
	}
}

// Put copies data to offset.
func (m *Memory) Put(offset uint32, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.buf[offset:], data)
}

// Get returns a copy of size bytes at offset.
func (m *Memory) Get(offset, size uint32) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.buf[offset : offset+size])
}

// Uint64At reads a little-endian 64-bit value at offset.
func (m *Memory) Uint64At(offset uint32) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return binary.LittleEndian.Uint64(m.buf[offset:])
}

// Fill sets every byte in [offset, offset+size) to b.
func (m *Memory) Fill(offset, size uint32, b byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := offset; i < offset+size; i++ {
		m.buf[i] = b
	}
}
