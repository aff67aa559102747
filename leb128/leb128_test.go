package leb128

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertexvm/vertexvm/reader"
)

func TestUint32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 1 << 20, 0xFFFFFFFF} {
		buf := AppendUint32(nil, v)
		got, err := ReadUint32(reader.New(buf))
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestInt32RoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 63, -64, 64, -65, 1000000, -1000000} {
		buf := AppendInt32(nil, v)
		got, err := ReadInt32(reader.New(buf))
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestUint64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 1 << 40, 0xFFFFFFFFFFFFFFFF} {
		buf := AppendUint64(nil, v)
		got, err := ReadUint64(reader.New(buf))
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestInt64RoundTrip(t *testing.T) {
	for _, v := range []int64{0, -1, 1 << 50, -(1 << 50)} {
		buf := AppendInt64(nil, v)
		got, err := ReadInt64(reader.New(buf))
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestReadUnexpectedEnd(t *testing.T) {
	r := reader.New([]byte{0x80}) // continuation bit set, no following byte
	_, err := ReadUint32(r)
	assert.Equal(t, ErrUnexpectedEnd, err)
}

func TestReadUint32TooLong(t *testing.T) {
	// six continuation bytes encode well beyond 32 bits worth of shift.
	r := reader.New([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	_, err := ReadUint32(r)
	assert.Equal(t, ErrTooLong, err)
}
