package instance

import (
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

// MaxTableSize is the element-count ceiling applied to a table with no
// declared maximum.
const MaxTableSize = 65536

// Table is a runtime table instance: a resizable slice of references.
type Table struct {
	Type wasm.TableType
	elems []value.Val
}

// NewTable allocates a table with Type.Limits.Min elements, each set
// to the null reference of the table's element type.
func NewTable(t wasm.TableType) *Table {
	init := zeroRef(t.ElemType)
	elems := make([]value.Val, t.Limits.Min)
	for i := range elems {
		elems[i] = init
	}
	return &Table{Type: t, elems: elems}
}

func zeroRef(rt wasm.RefType) value.Val {
	if rt == wasm.RefTypeExtern {
		return value.NullExternRef()
	}
	return value.NullFuncRef()
}

// Size returns the table's current element count.
func (t *Table) Size() uint32 {
	return uint32(len(t.elems))
}

// Grow appends n elements each initialized to fill, returning the
// table's size before growth, or -1 if the growth would overflow or
// exceed the declared/implicit maximum.
func (t *Table) Grow(n uint32, fill value.Val) int64 {
	old := t.Size()
	if n == 0 {
		return int64(old)
	}
	newSize := uint64(old) + uint64(n)
	max := uint64(MaxTableSize)
	if t.Type.Limits.HasMax() {
		max = uint64(t.Type.Limits.Max)
	}
	if newSize > max {
		return -1
	}
	grown := make([]value.Val, newSize)
	copy(grown, t.elems)
	for i := uint64(old); i < newSize; i++ {
		grown[i] = fill
	}
	t.elems = grown
	return int64(old)
}

// Get returns the reference stored at idx.
func (t *Table) Get(idx uint32) (value.Val, bool) {
	if idx >= t.Size() {
		return value.Val{}, false
	}
	return t.elems[idx], true
}

// Set stores v at idx.
func (t *Table) Set(idx uint32, v value.Val) bool {
	if idx >= t.Size() {
		return false
	}
	t.elems[idx] = v
	return true
}

// Fill writes v into [idx, idx+n).
func (t *Table) Fill(idx, n uint32, v value.Val) bool {
	if uint64(idx)+uint64(n) > uint64(t.Size()) {
		return false
	}
	for i := uint32(0); i < n; i++ {
		t.elems[idx+i] = v
	}
	return true
}

// CopyWithin copies n elements from src to dst within the same table,
// correctly handling overlap.
func (t *Table) CopyWithin(dst, src, n uint32) bool {
	if uint64(dst)+uint64(n) > uint64(t.Size()) || uint64(src)+uint64(n) > uint64(t.Size()) {
		return false
	}
	tmp := make([]value.Val, n)
	copy(tmp, t.elems[src:src+n])
	copy(t.elems[dst:dst+n], tmp)
	return true
}

// CopyFrom copies n elements from src (in another table) to dst in t.
func (t *Table) CopyFrom(src *Table, dstIdx, srcIdx, n uint32) bool {
	if uint64(dstIdx)+uint64(n) > uint64(t.Size()) || uint64(srcIdx)+uint64(n) > uint64(src.Size()) {
		return false
	}
	copy(t.elems[dstIdx:dstIdx+n], src.elems[srcIdx:srcIdx+n])
	return true
}

// InitFrom copies n references from an element segment's retained
// refs into the table, used by table.init.
func (t *Table) InitFrom(elem *Element, dstIdx, srcIdx, n uint32) bool {
	if uint64(srcIdx)+uint64(n) > uint64(len(elem.Refs)) || uint64(dstIdx)+uint64(n) > uint64(t.Size()) {
		return false
	}
	copy(t.elems[dstIdx:dstIdx+n], elem.Refs[srcIdx:srcIdx+n])
	return true
}
