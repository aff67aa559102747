package reader

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadByteAdvancesAndErrorsAtEnd(t *testing.T) {
	r := New([]byte{0x01, 0x02})
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b)
	assert.Equal(t, uint32(1), r.Pos())

	b, err = r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), b)

	_, err = r.ReadByte()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	assert.True(t, r.AtEnd())
}

func TestPeekByteDoesNotAdvance(t *testing.T) {
	r := New([]byte{0xAA})
	b, err := r.PeekByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xAA), b)
	assert.Equal(t, uint32(0), r.Pos())
}

func TestReadOutOfBounds(t *testing.T) {
	r := New([]byte{0x01, 0x02, 0x03})
	_, err := r.Read(10)
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestSliceGivesIndependentCursor(t *testing.T) {
	r := New([]byte{0x01, 0x02, 0x03, 0x04})
	sub, err := r.Slice(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), r.Pos())

	b, err := sub.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b)
	assert.True(t, sub.AtEnd() == false)
}

func TestReadF32AndF64RoundTripBits(t *testing.T) {
	r := New([]byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF0, 0x3F})
	f32, err := r.ReadF32()
	require.NoError(t, err)
	assert.Equal(t, float32(1), f32)

	f64, err := r.ReadF64()
	require.NoError(t, err)
	assert.Equal(t, float64(1), f64)
}

func TestReadUTF8RejectsInvalidBytes(t *testing.T) {
	r := New([]byte{0xFF, 0xFE})
	_, err := r.ReadUTF8(2)
	assert.Equal(t, ErrInvalidUTF8, err)
}

func TestReadV128(t *testing.T) {
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(i)
	}
	r := New(raw)
	v, err := r.ReadV128()
	require.NoError(t, err)
	assert.Equal(t, raw, v[:])
}
