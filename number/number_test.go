package number

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinMax(t *testing.T) {
	minI32 := int64(math.MinInt32)
	assert.Equal(t, uint64(minI32), Min(I32))
	assert.Equal(t, uint64(math.MaxInt32), Max(I32))
	assert.Equal(t, uint64(0), Min(U32))
	assert.Equal(t, uint64(math.MaxUint32), Max(U32))
	assert.Equal(t, uint64(math.MaxUint64), Max(U64))
}

func TestCanTruncateF32ToI32(t *testing.T) {
	assert.True(t, CanTruncate(F32, I32, float32(100)))
	assert.False(t, CanTruncate(F32, I32, float32(1e10)))
	assert.False(t, CanTruncate(F32, I32, float32(-1e10)))
}

func TestCanTruncateF64ToU32(t *testing.T) {
	assert.True(t, CanTruncate(F64, U32, float64(100)))
	assert.False(t, CanTruncate(F64, U32, float64(-1)))
	assert.False(t, CanTruncate(F64, U32, float64(1e20)))
}

func TestFloatTruncateNaNTraps(t *testing.T) {
	bits := math.Float64bits(math.NaN())
	_, trap := FloatTruncate(F64, I32, bits)
	assert.Equal(t, NanTrap, trap)
}

func TestFloatTruncateOutOfRangeTraps(t *testing.T) {
	bits := math.Float64bits(1e20)
	v, trap := FloatTruncate(F64, I32, bits)
	assert.Equal(t, ConvertTrap, trap)
	assert.Equal(t, Max(I32), v)

	bits = math.Float64bits(-1e20)
	v, trap = FloatTruncate(F64, I32, bits)
	assert.Equal(t, ConvertTrap, trap)
	assert.Equal(t, Min(I32), v)
}

func TestFloatTruncateNormal(t *testing.T) {
	bits := math.Float64bits(42.9)
	v, trap := FloatTruncate(F64, I32, bits)
	assert.Equal(t, NoTrap, trap)
	assert.Equal(t, uint64(42), v)

	bits = math.Float32bits(float32(-7.5))
	v, trap = FloatTruncate(F32, I32, uint64(bits))
	assert.Equal(t, NoTrap, trap)
	neg7 := int32(-7)
	assert.Equal(t, uint64(neg7), v)
}

func TestSatTruncateNaNIsZero(t *testing.T) {
	bits := math.Float64bits(math.NaN())
	assert.Equal(t, uint64(0), SatTruncate(F64, I32, bits))
}

func TestSatTruncateClampsOutOfRange(t *testing.T) {
	bits := math.Float64bits(1e20)
	assert.Equal(t, Max(I32), SatTruncate(F64, I32, bits))

	bits = math.Float64bits(-1e20)
	assert.Equal(t, Min(I32), SatTruncate(F64, I32, bits))
}

func TestSatTruncateNormal(t *testing.T) {
	bits := math.Float64bits(17.9)
	assert.Equal(t, uint64(17), SatTruncate(F64, I64, bits))
}
