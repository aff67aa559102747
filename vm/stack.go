package vm

import "github.com/vertexvm/vertexvm/value"

func (v *VM) push(val value.Val) {
	if len(v.operands) >= v.cfg.Limits.MaxOperandStack {
		panic(ErrStackOverflow)
	}
	v.operands = append(v.operands, val)
}

func (v *VM) pop() value.Val {
	if len(v.operands) == 0 {
		panic(ErrStackUnderflow)
	}
	val := v.operands[len(v.operands)-1]
	v.operands = v.operands[:len(v.operands)-1]
	return val
}

func (v *VM) popN(n int) []value.Val {
	if len(v.operands) < n {
		panic(ErrStackUnderflow)
	}
	vals := make([]value.Val, n)
	copy(vals, v.operands[len(v.operands)-n:])
	v.operands = v.operands[:len(v.operands)-n]
	return vals
}

func (v *VM) pushN(vals []value.Val) {
	for _, val := range vals {
		v.push(val)
	}
}

func (v *VM) popI32() int32   { return v.pop().AsI32() }
func (v *VM) popU32() uint32  { return v.pop().AsU32() }
func (v *VM) popI64() int64   { return v.pop().AsI64() }
func (v *VM) popU64() uint64  { return v.pop().AsU64() }
func (v *VM) popF32() float32 { return v.pop().AsF32() }
func (v *VM) popF64() float64 { return v.pop().AsF64() }
func (v *VM) popBool() bool   { return v.pop().AsBool() }

func (v *VM) pushI32(x int32)   { v.push(value.I32Val(x)) }
func (v *VM) pushU32(x uint32)  { v.push(value.U32Val(x)) }
func (v *VM) pushI64(x int64)   { v.push(value.I64Val(x)) }
func (v *VM) pushU64(x uint64)  { v.push(value.U64Val(x)) }
func (v *VM) pushF32(x float32) { v.push(value.F32Val(x)) }
func (v *VM) pushF64(x float64) { v.push(value.F64Val(x)) }
func (v *VM) pushBool(b bool) {
	if b {
		v.pushI32(1)
	} else {
		v.pushI32(0)
	}
}

// local/setLocal resolve local index n against the nearest enclosing
// Call frame's LocalBase, recomputed on every access rather than
// cached, since the nearest Call frame changes as calls return.
func (v *VM) local(n int) value.Val {
	idx, _, ok := v.frames.topCall()
	if !ok {
		panic(ErrCallFrameNotFound)
	}
	base := v.frames.get(idx).LocalBase
	return v.operands[base+n]
}

func (v *VM) setLocal(n int, val value.Val) {
	idx, _, ok := v.frames.topCall()
	if !ok {
		panic(ErrCallFrameNotFound)
	}
	base := v.frames.get(idx).LocalBase
	v.operands[base+n] = val
}
