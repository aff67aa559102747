package instance

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertexvm/vertexvm/wasm"
)

func TestNewMemorySizing(t *testing.T) {
	m := NewMemory(wasm.MemType{Limits: wasm.Limits{Min: 2}})
	assert.Equal(t, uint32(2), m.SizePages())
	assert.Len(t, m.Bytes(), 2*PageSize)
}

func TestMemoryGrowZeroIsNoop(t *testing.T) {
	m := NewMemory(wasm.MemType{Limits: wasm.Limits{Min: 1}})
	prev := m.Grow(0)
	assert.Equal(t, int64(1), prev)
	assert.Equal(t, uint32(1), m.SizePages())
}

func TestMemoryGrowSucceedsWithinMax(t *testing.T) {
	m := NewMemory(wasm.MemType{Limits: wasm.Limits{Min: 1, Max: 3}})
	prev := m.Grow(2)
	assert.Equal(t, int64(1), prev)
	assert.Equal(t, uint32(3), m.SizePages())
}

func TestMemoryGrowFailsBeyondExplicitMax(t *testing.T) {
	m := NewMemory(wasm.MemType{Limits: wasm.Limits{Min: 1, Max: 1}})
	assert.Equal(t, int64(-1), m.Grow(1))
	assert.Equal(t, uint32(1), m.SizePages())
}

func TestMemoryGrowFailsBeyondImplicitMax(t *testing.T) {
	m := NewMemory(wasm.MemType{Limits: wasm.Limits{Min: 1, Max: -1}})
	assert.Equal(t, int64(-1), m.Grow(MaxPages))
}

func TestMemoryReadWriteRoundTrip(t *testing.T) {
	m := NewMemory(wasm.MemType{Limits: wasm.Limits{Min: 1}})
	data := []byte{1, 2, 3, 4, 5}
	n, err := m.Write(data, 10)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	buf := make([]byte, len(data))
	n, err = m.Read(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, buf)
}

func TestMemoryReadShortBuffer(t *testing.T) {
	m := NewMemory(wasm.MemType{Limits: wasm.Limits{Min: 1}})
	buf := make([]byte, 4)
	_, err := m.Read(buf, uint64(len(m.Bytes())-1))
	assert.Equal(t, io.ErrShortBuffer, err)
}

func TestMemoryWriteShortWrite(t *testing.T) {
	m := NewMemory(wasm.MemType{Limits: wasm.Limits{Min: 1}})
	_, err := m.Write([]byte{1, 2, 3, 4}, uint64(len(m.Bytes())-1))
	assert.Equal(t, io.ErrShortWrite, err)
}

func TestMemoryFill(t *testing.T) {
	m := NewMemory(wasm.MemType{Limits: wasm.Limits{Min: 1}})
	ok := m.Fill(0, 0xAB, 8)
	assert.True(t, ok)
	assert.Equal(t, []byte{0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB}, m.Bytes()[:8])

	assert.False(t, m.Fill(uint64(len(m.Bytes())-1), 0, 10))
}

func TestMemoryCopyWithinOverlap(t *testing.T) {
	m := NewMemory(wasm.MemType{Limits: wasm.Limits{Min: 1}})
	for i := 0; i < 8; i++ {
		m.Bytes()[i] = byte(i + 1)
	}
	ok := m.CopyWithin(2, 0, 6)
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 1, 2, 3, 4, 5, 6}, m.Bytes()[:8])

	assert.False(t, m.CopyWithin(uint64(len(m.Bytes())-1), 0, 10))
}
