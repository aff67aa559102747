// Package value implements the WebAssembly value model: the four
// scalar number types, the 128-bit vector type and its lane views, and
// the reference types, all held behind a single tagged union.
package value

import "math"

// Type tags a Val's payload.
type Type byte

const (
	I32 Type = iota
	I64
	F32
	F64
	V128
	FuncRef
	ExternRef
)

func (t Type) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	case FuncRef:
		return "funcref"
	case ExternRef:
		return "externref"
	default:
		return "unknown"
	}
}

// V128 is the 128-bit vector payload, stored as four 32-bit lanes so
// every narrower lane view is a zero-cost bit reinterpretation.
type V128 [4]uint32

// AllZero reports whether every bit of the vector is zero, the "false"
// reading used by v128.any_true's boolean-context inverse.
func (v V128) AllZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0 && v[3] == 0
}

// Bytes returns the 16 raw little-endian bytes of the vector.
func (v V128) Bytes() [16]byte {
	var out [16]byte
	for i := 0; i < 4; i++ {
		out[i*4+0] = byte(v[i])
		out[i*4+1] = byte(v[i] >> 8)
		out[i*4+2] = byte(v[i] >> 16)
		out[i*4+3] = byte(v[i] >> 24)
	}
	return out
}

// V128FromBytes builds a vector from 16 raw little-endian bytes.
func V128FromBytes(b [16]byte) V128 {
	var v V128
	for i := 0; i < 4; i++ {
		v[i] = uint32(b[i*4+0]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return v
}

// I8x16 returns the sixteen 8-bit signed lanes.
func (v V128) I8x16() (out [16]int8) {
	b := v.Bytes()
	for i, x := range b {
		out[i] = int8(x)
	}
	return out
}

// U8x16 returns the sixteen 8-bit unsigned lanes.
func (v V128) U8x16() (out [16]uint8) {
	b := v.Bytes()
	copy(out[:], b[:])
	return out
}

// I16x8 returns the eight 16-bit signed lanes.
func (v V128) I16x8() (out [8]int16) {
	b := v.Bytes()
	for i := 0; i < 8; i++ {
		out[i] = int16(uint16(b[i*2]) | uint16(b[i*2+1])<<8)
	}
	return out
}

// U16x8 returns the eight 16-bit unsigned lanes.
func (v V128) U16x8() (out [8]uint16) {
	b := v.Bytes()
	for i := 0; i < 8; i++ {
		out[i] = uint16(b[i*2]) | uint16(b[i*2+1])<<8
	}
	return out
}

// I32x4 returns the four 32-bit signed lanes.
func (v V128) I32x4() (out [4]int32) {
	for i, x := range v {
		out[i] = int32(x)
	}
	return out
}

// U32x4 returns the four 32-bit unsigned lanes.
func (v V128) U32x4() (out [4]uint32) {
	return [4]uint32(v)
}

// I64x2 returns the two 64-bit signed lanes.
func (v V128) I64x2() (out [2]int64) {
	out[0] = int64(uint64(v[0]) | uint64(v[1])<<32)
	out[1] = int64(uint64(v[2]) | uint64(v[3])<<32)
	return out
}

// U64x2 returns the two 64-bit unsigned lanes.
func (v V128) U64x2() (out [2]uint64) {
	out[0] = uint64(v[0]) | uint64(v[1])<<32
	out[1] = uint64(v[2]) | uint64(v[3])<<32
	return out
}

// F32x4 returns the four 32-bit float lanes.
func (v V128) F32x4() (out [4]float32) {
	for i, x := range v {
		out[i] = math.Float32frombits(x)
	}
	return out
}

// F64x2 returns the two 64-bit float lanes.
func (v V128) F64x2() (out [2]float64) {
	u := v.U64x2()
	return [2]float64{math.Float64frombits(u[0]), math.Float64frombits(u[1])}
}

// V128FromI8x16 builds a vector from sixteen 8-bit signed lanes.
func V128FromI8x16(lanes [16]int8) V128 {
	var b [16]byte
	for i, x := range lanes {
		b[i] = byte(x)
	}
	return V128FromBytes(b)
}

// V128FromI16x8 builds a vector from eight 16-bit signed lanes.
func V128FromI16x8(lanes [8]int16) V128 {
	var b [16]byte
	for i, x := range lanes {
		b[i*2] = byte(x)
		b[i*2+1] = byte(x >> 8)
	}
	return V128FromBytes(b)
}

// V128FromI32x4 builds a vector from four 32-bit signed lanes.
func V128FromI32x4(lanes [4]int32) V128 {
	var v V128
	for i, x := range lanes {
		v[i] = uint32(x)
	}
	return v
}

// V128FromI64x2 builds a vector from two 64-bit signed lanes.
func V128FromI64x2(lanes [2]int64) V128 {
	var v V128
	v[0] = uint32(lanes[0])
	v[1] = uint32(lanes[0] >> 32)
	v[2] = uint32(lanes[1])
	v[3] = uint32(lanes[1] >> 32)
	return v
}

// V128FromF32x4 builds a vector from four 32-bit float lanes.
func V128FromF32x4(lanes [4]float32) V128 {
	var v V128
	for i, x := range lanes {
		v[i] = math.Float32bits(x)
	}
	return v
}

// V128FromF64x2 builds a vector from two 64-bit float lanes.
func V128FromF64x2(lanes [2]float64) V128 {
	return V128FromI64x2([2]int64{int64(math.Float64bits(lanes[0])), int64(math.Float64bits(lanes[1]))})
}

// Ref is a reference-type payload: either a resolved index into a
// host-observable space (func/extern), or the null reference.
type Ref struct {
	Null bool
	// Idx identifies the referenced entity (function index for
	// funcref, an opaque host handle for externref). Meaningless when
	// Null is true.
	Idx uint32
}

// NullRef is the canonical null reference value.
var NullRef = Ref{Null: true}

// Val is a tagged union over every WebAssembly value type.
type Val struct {
	T    Type
	I32  int32
	I64  int64
	F32  float32
	F64  float64
	V128 V128
	Ref  Ref
}

// I32Val constructs an i32 value.
func I32Val(v int32) Val { return Val{T: I32, I32: v} }

// U32Val constructs an i32 value from an unsigned bit pattern.
func U32Val(v uint32) Val { return Val{T: I32, I32: int32(v)} }

// I64Val constructs an i64 value.
func I64Val(v int64) Val { return Val{T: I64, I64: v} }

// U64Val constructs an i64 value from an unsigned bit pattern.
func U64Val(v uint64) Val { return Val{T: I64, I64: int64(v)} }

// F32Val constructs an f32 value.
func F32Val(v float32) Val { return Val{T: F32, F32: v} }

// F64Val constructs an f64 value.
func F64Val(v float64) Val { return Val{T: F64, F64: v} }

// V128Val constructs a v128 value.
func V128Val(v V128) Val { return Val{T: V128, V128: v} }

// FuncRefVal constructs a funcref value pointing at function index idx.
func FuncRefVal(idx uint32) Val { return Val{T: FuncRef, Ref: Ref{Idx: idx}} }

// NullFuncRef is the null funcref value.
func NullFuncRef() Val { return Val{T: FuncRef, Ref: NullRef} }

// ExternRefVal constructs an externref value wrapping an opaque handle.
func ExternRefVal(idx uint32) Val { return Val{T: ExternRef, Ref: Ref{Idx: idx}} }

// NullExternRef is the null externref value.
func NullExternRef() Val { return Val{T: ExternRef, Ref: NullRef} }

// Zero returns the default ("zero") value for a type, used to
// initialize locals and table slots.
func Zero(t Type) Val {
	switch t {
	case I32:
		return I32Val(0)
	case I64:
		return I64Val(0)
	case F32:
		return F32Val(0)
	case F64:
		return F64Val(0)
	case V128:
		return V128Val(V128{})
	case FuncRef:
		return NullFuncRef()
	case ExternRef:
		return NullExternRef()
	default:
		panic("value: zero of unknown type")
	}
}

// AsU32 reinterprets an i32 payload as unsigned; panics on type mismatch.
func (v Val) AsU32() uint32 {
	v.mustBe(I32)
	return uint32(v.I32)
}

// AsI32 returns the i32 payload; panics on type mismatch.
func (v Val) AsI32() int32 {
	v.mustBe(I32)
	return v.I32
}

// AsU64 reinterprets an i64 payload as unsigned; panics on type mismatch.
func (v Val) AsU64() uint64 {
	v.mustBe(I64)
	return uint64(v.I64)
}

// AsI64 returns the i64 payload; panics on type mismatch.
func (v Val) AsI64() int64 {
	v.mustBe(I64)
	return v.I64
}

// AsF32 returns the f32 payload; panics on type mismatch.
func (v Val) AsF32() float32 {
	v.mustBe(F32)
	return v.F32
}

// AsF64 returns the f64 payload; panics on type mismatch.
func (v Val) AsF64() float64 {
	v.mustBe(F64)
	return v.F64
}

// AsV128 returns the v128 payload; panics on type mismatch.
func (v Val) AsV128() V128 {
	v.mustBe(V128)
	return v.V128
}

// AsMemAddr widens an address-bearing value (i32 or i64) to u64, the
// form used for load/store effective-address computation.
func (v Val) AsMemAddr() uint64 {
	switch v.T {
	case I32:
		return uint64(uint32(v.I32))
	case I64:
		return uint64(v.I64)
	default:
		panic("value: AsMemAddr on non-integer value")
	}
}

// AsBool reports the value's truthiness: zero scalars, the all-zero
// vector, and null references are false; everything else is true.
func (v Val) AsBool() bool {
	switch v.T {
	case I32:
		return v.I32 != 0
	case I64:
		return v.I64 != 0
	case F32:
		return v.F32 != 0
	case F64:
		return v.F64 != 0
	case V128:
		return !v.V128.AllZero()
	case FuncRef, ExternRef:
		return !v.Ref.Null
	default:
		panic("value: AsBool on unknown type")
	}
}

func (v Val) mustBe(t Type) {
	if v.T != t {
		panic("value: expected " + t.String() + " but got " + v.T.String())
	}
}

// Equal implements WebAssembly value equality, under which NaN equals
// NaN (unlike Go's native float comparison) because constant-expression
// and test-harness comparisons operate on bit patterns, not IEEE order.
func Equal(a, b Val) bool {
	if a.T != b.T {
		return false
	}
	switch a.T {
	case I32:
		return a.I32 == b.I32
	case I64:
		return a.I64 == b.I64
	case F32:
		return math.Float32bits(a.F32) == math.Float32bits(b.F32) || (isNaN32(a.F32) && isNaN32(b.F32))
	case F64:
		return math.Float64bits(a.F64) == math.Float64bits(b.F64) || (isNaN64(a.F64) && isNaN64(b.F64))
	case V128:
		return a.V128 == b.V128
	case FuncRef, ExternRef:
		return a.Ref == b.Ref
	default:
		return false
	}
}

func isNaN32(f float32) bool { return f != f }
func isNaN64(f float64) bool { return f != f }
