package instance

import (
	"io"

	"github.com/vertexvm/vertexvm/wasm"
)

// PageSize is the fixed 64KiB granularity of linear memory.
const PageSize = 65536

// MaxPages is the page-count ceiling applied to a memory with no
// declared maximum.
const MaxPages = 65536

// Memory is a runtime linear memory instance.
type Memory struct {
	Type wasm.MemType
	data []byte
}

// NewMemory allocates a memory with Type.Limits.Min pages, zero-filled.
func NewMemory(t wasm.MemType) *Memory {
	return &Memory{Type: t, data: make([]byte, uint64(t.Limits.Min)*PageSize)}
}

// SizePages returns the current size in pages.
func (m *Memory) SizePages() uint32 {
	return uint32(len(m.data) / PageSize)
}

// Grow appends n pages, returning the size (in pages) before growth,
// or -1 if growth would overflow or exceed the maximum.
func (m *Memory) Grow(n uint32) int64 {
	old := m.SizePages()
	if n == 0 {
		return int64(old)
	}
	newSize := uint64(old) + uint64(n)
	max := uint64(MaxPages)
	if m.Type.Limits.HasMax() {
		max = uint64(m.Type.Limits.Max)
	}
	if newSize > max {
		return -1
	}
	grown := make([]byte, newSize*PageSize)
	copy(grown, m.data)
	m.data = grown
	m.Type.Limits.Min = uint32(newSize)
	return int64(old)
}

// Bytes exposes the memory's backing buffer directly, for instructions
// that need raw slices (e.g. memory.copy/fill) without a copy.
func (m *Memory) Bytes() []byte {
	return m.data
}

// Read copies len(buf) bytes starting at offset into buf.
func (m *Memory) Read(buf []byte, offset uint64) (int, error) {
	if offset+uint64(len(buf)) > uint64(len(m.data)) {
		return 0, io.ErrShortBuffer
	}
	return copy(buf, m.data[offset:]), nil
}

// Write copies data into the memory starting at offset.
func (m *Memory) Write(data []byte, offset uint64) (int, error) {
	if offset+uint64(len(data)) > uint64(len(m.data)) {
		return 0, io.ErrShortWrite
	}
	return copy(m.data[offset:], data), nil
}

// Fill sets n bytes starting at offset to val.
func (m *Memory) Fill(offset uint64, val byte, n uint64) bool {
	if offset+n > uint64(len(m.data)) {
		return false
	}
	buf := m.data[offset : offset+n]
	for i := range buf {
		buf[i] = val
	}
	return true
}

// CopyWithin copies n bytes from src to dst, correctly handling overlap.
func (m *Memory) CopyWithin(dst, src, n uint64) bool {
	if dst+n > uint64(len(m.data)) || src+n > uint64(len(m.data)) {
		return false
	}
	tmp := make([]byte, n)
	copy(tmp, m.data[src:src+n])
	copy(m.data[dst:dst+n], tmp)
	return true
}
