package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroPerType(t *testing.T) {
	assert.Equal(t, int32(0), Zero(I32).AsI32())
	assert.Equal(t, int64(0), Zero(I64).AsI64())
	assert.Equal(t, float32(0), Zero(F32).AsF32())
	assert.Equal(t, float64(0), Zero(F64).AsF64())
	assert.True(t, Zero(FuncRef).Ref.Null)
	assert.True(t, Zero(ExternRef).Ref.Null)
}

func TestAsBool(t *testing.T) {
	assert.True(t, I32Val(1).AsBool())
	assert.False(t, I32Val(0).AsBool())
	assert.False(t, NullFuncRef().AsBool())
	assert.True(t, FuncRefVal(3).AsBool())
	assert.False(t, V128Val(V128{}).AsBool())
}

func TestAsMemAddr(t *testing.T) {
	assert.Equal(t, uint64(0xFFFFFFFF), U32Val(0xFFFFFFFF).AsMemAddr())
	assert.Equal(t, uint64(42), I64Val(42).AsMemAddr())
}

func TestEqualTreatsNaNAsEqual(t *testing.T) {
	nan := F32Val(float32(math.NaN()))
	assert.True(t, Equal(nan, nan))
	assert.False(t, Equal(F32Val(1), F32Val(2)))
	assert.True(t, Equal(I32Val(5), I32Val(5)))
	assert.False(t, Equal(I32Val(5), I64Val(5)))
}

func TestV128LaneRoundTrip(t *testing.T) {
	lanes := [4]int32{1, -2, 3, -4}
	v := V128FromI32x4(lanes)
	assert.Equal(t, lanes, v.I32x4())

	bytes := v.Bytes()
	assert.Equal(t, v, V128FromBytes(bytes))
}

func TestV128AllZero(t *testing.T) {
	assert.True(t, V128{}.AllZero())
	assert.False(t, V128FromI32x4([4]int32{0, 0, 1, 0}).AllZero())
}

func TestMustBePanicsOnMismatch(t *testing.T) {
	assert.Panics(t, func() { I32Val(1).AsI64() })
}
