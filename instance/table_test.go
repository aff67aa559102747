package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

func TestNewTableFillsNullRefs(t *testing.T) {
	tbl := NewTable(wasm.TableType{ElemType: wasm.RefTypeFunc, Limits: wasm.Limits{Min: 3, Max: -1}})
	assert.Equal(t, uint32(3), tbl.Size())
	for i := uint32(0); i < 3; i++ {
		v, ok := tbl.Get(i)
		assert.True(t, ok)
		assert.True(t, v.Ref.Null)
	}
}

func TestNewTableExternRefs(t *testing.T) {
	tbl := NewTable(wasm.TableType{ElemType: wasm.RefTypeExtern, Limits: wasm.Limits{Min: 1, Max: -1}})
	v, ok := tbl.Get(0)
	assert.True(t, ok)
	assert.Equal(t, value.NullExternRef(), v)
}

func TestTableGrowAndFill(t *testing.T) {
	tbl := NewTable(wasm.TableType{ElemType: wasm.RefTypeFunc, Limits: wasm.Limits{Min: 1, Max: 4}})
	prev := tbl.Grow(2, value.FuncRefVal(9))
	assert.Equal(t, int64(1), prev)
	assert.Equal(t, uint32(3), tbl.Size())
	v, _ := tbl.Get(1)
	assert.Equal(t, value.FuncRefVal(9), v)
}

func TestTableGrowFailsBeyondMax(t *testing.T) {
	tbl := NewTable(wasm.TableType{ElemType: wasm.RefTypeFunc, Limits: wasm.Limits{Min: 1, Max: 1}})
	assert.Equal(t, int64(-1), tbl.Grow(1, value.NullFuncRef()))
}

func TestTableGetSetOutOfBounds(t *testing.T) {
	tbl := NewTable(wasm.TableType{ElemType: wasm.RefTypeFunc, Limits: wasm.Limits{Min: 1, Max: -1}})
	_, ok := tbl.Get(5)
	assert.False(t, ok)
	assert.False(t, tbl.Set(5, value.NullFuncRef()))
	assert.True(t, tbl.Set(0, value.FuncRefVal(1)))
	v, _ := tbl.Get(0)
	assert.Equal(t, value.FuncRefVal(1), v)
}

func TestTableFillAndCopyWithin(t *testing.T) {
	tbl := NewTable(wasm.TableType{ElemType: wasm.RefTypeFunc, Limits: wasm.Limits{Min: 8, Max: -1}})
	assert.True(t, tbl.Fill(0, 4, value.FuncRefVal(7)))
	for i := uint32(0); i < 4; i++ {
		v, _ := tbl.Get(i)
		assert.Equal(t, value.FuncRefVal(7), v)
	}
	assert.False(t, tbl.Fill(6, 4, value.NullFuncRef()))

	assert.True(t, tbl.CopyWithin(2, 0, 4))
	v, _ := tbl.Get(3)
	assert.Equal(t, value.FuncRefVal(7), v)
	assert.False(t, tbl.CopyWithin(6, 0, 4))
}

func TestTableCopyFromAndInitFrom(t *testing.T) {
	src := NewTable(wasm.TableType{ElemType: wasm.RefTypeFunc, Limits: wasm.Limits{Min: 2, Max: -1}})
	src.Set(0, value.FuncRefVal(11))
	src.Set(1, value.FuncRefVal(12))

	dst := NewTable(wasm.TableType{ElemType: wasm.RefTypeFunc, Limits: wasm.Limits{Min: 2, Max: -1}})
	assert.True(t, dst.CopyFrom(src, 0, 0, 2))
	v, _ := dst.Get(1)
	assert.Equal(t, value.FuncRefVal(12), v)
	assert.False(t, dst.CopyFrom(src, 0, 0, 5))

	elem := &Element{Refs: []value.Val{value.FuncRefVal(21), value.FuncRefVal(22)}}
	dst2 := NewTable(wasm.TableType{ElemType: wasm.RefTypeFunc, Limits: wasm.Limits{Min: 2, Max: -1}})
	assert.True(t, dst2.InitFrom(elem, 0, 0, 2))
	v, _ = dst2.Get(0)
	assert.Equal(t, value.FuncRefVal(21), v)
	assert.False(t, dst2.InitFrom(elem, 0, 0, 3))
}
