package vm

import (
	"math"
	"math/bits"

	"github.com/chewxy/math32"
	"github.com/vertexvm/vertexvm/number"
	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/wasm"
)

// dispatchNumericOrMemory handles every scalar arithmetic, comparison,
// conversion, and load/store instruction -- everything left over once
// control.go's switch has peeled off control flow, locals/globals,
// tables, and the 0xFC/0xFD prefixed families.
func (v *VM) dispatchNumericOrMemory(instr wasm.Instruction) {
	switch instr.Op {
	case opcode.I32Eqz:
		v.pushBool(v.popI32() == 0)
	case opcode.I32Eq:
		b, a := v.popI32(), v.popI32()
		v.pushBool(a == b)
	case opcode.I32Ne:
		b, a := v.popI32(), v.popI32()
		v.pushBool(a != b)
	case opcode.I32LtS:
		b, a := v.popI32(), v.popI32()
		v.pushBool(a < b)
	case opcode.I32LtU:
		b, a := v.popU32(), v.popU32()
		v.pushBool(a < b)
	case opcode.I32GtS:
		b, a := v.popI32(), v.popI32()
		v.pushBool(a > b)
	case opcode.I32GtU:
		b, a := v.popU32(), v.popU32()
		v.pushBool(a > b)
	case opcode.I32LeS:
		b, a := v.popI32(), v.popI32()
		v.pushBool(a <= b)
	case opcode.I32LeU:
		b, a := v.popU32(), v.popU32()
		v.pushBool(a <= b)
	case opcode.I32GeS:
		b, a := v.popI32(), v.popI32()
		v.pushBool(a >= b)
	case opcode.I32GeU:
		b, a := v.popU32(), v.popU32()
		v.pushBool(a >= b)

	case opcode.I64Eqz:
		v.pushBool(v.popI64() == 0)
	case opcode.I64Eq:
		b, a := v.popI64(), v.popI64()
		v.pushBool(a == b)
	case opcode.I64Ne:
		b, a := v.popI64(), v.popI64()
		v.pushBool(a != b)
	case opcode.I64LtS:
		b, a := v.popI64(), v.popI64()
		v.pushBool(a < b)
	case opcode.I64LtU:
		b, a := v.popU64(), v.popU64()
		v.pushBool(a < b)
	case opcode.I64GtS:
		b, a := v.popI64(), v.popI64()
		v.pushBool(a > b)
	case opcode.I64GtU:
		b, a := v.popU64(), v.popU64()
		v.pushBool(a > b)
	case opcode.I64LeS:
		b, a := v.popI64(), v.popI64()
		v.pushBool(a <= b)
	case opcode.I64LeU:
		b, a := v.popU64(), v.popU64()
		v.pushBool(a <= b)
	case opcode.I64GeS:
		b, a := v.popI64(), v.popI64()
		v.pushBool(a >= b)
	case opcode.I64GeU:
		b, a := v.popU64(), v.popU64()
		v.pushBool(a >= b)

	case opcode.F32Eq:
		b, a := v.popF32(), v.popF32()
		v.pushBool(a == b)
	case opcode.F32Ne:
		b, a := v.popF32(), v.popF32()
		v.pushBool(a != b)
	case opcode.F32Lt:
		b, a := v.popF32(), v.popF32()
		v.pushBool(a < b)
	case opcode.F32Gt:
		b, a := v.popF32(), v.popF32()
		v.pushBool(a > b)
	case opcode.F32Le:
		b, a := v.popF32(), v.popF32()
		v.pushBool(a <= b)
	case opcode.F32Ge:
		b, a := v.popF32(), v.popF32()
		v.pushBool(a >= b)

	case opcode.F64Eq:
		b, a := v.popF64(), v.popF64()
		v.pushBool(a == b)
	case opcode.F64Ne:
		b, a := v.popF64(), v.popF64()
		v.pushBool(a != b)
	case opcode.F64Lt:
		b, a := v.popF64(), v.popF64()
		v.pushBool(a < b)
	case opcode.F64Gt:
		b, a := v.popF64(), v.popF64()
		v.pushBool(a > b)
	case opcode.F64Le:
		b, a := v.popF64(), v.popF64()
		v.pushBool(a <= b)
	case opcode.F64Ge:
		b, a := v.popF64(), v.popF64()
		v.pushBool(a >= b)

	case opcode.I32Clz:
		v.pushI32(int32(bits.LeadingZeros32(v.popU32())))
	case opcode.I32Ctz:
		v.pushI32(int32(bits.TrailingZeros32(v.popU32())))
	case opcode.I32Popcnt:
		v.pushI32(int32(bits.OnesCount32(v.popU32())))
	case opcode.I32Add:
		b, a := v.popI32(), v.popI32()
		v.pushI32(a + b)
	case opcode.I32Sub:
		b, a := v.popI32(), v.popI32()
		v.pushI32(a - b)
	case opcode.I32Mul:
		b, a := v.popI32(), v.popI32()
		v.pushI32(a * b)
	case opcode.I32DivS:
		b, a := v.popI32(), v.popI32()
		if b == 0 {
			panic(ErrIntegerDivisionByZero)
		}
		if a == math.MinInt32 && b == -1 {
			panic(ErrIntegerOverflow)
		}
		v.pushI32(a / b)
	case opcode.I32DivU:
		b, a := v.popU32(), v.popU32()
		if b == 0 {
			panic(ErrIntegerDivisionByZero)
		}
		v.pushU32(a / b)
	case opcode.I32RemS:
		b, a := v.popI32(), v.popI32()
		if b == 0 {
			panic(ErrIntegerDivisionByZero)
		}
		if a == math.MinInt32 && b == -1 {
			v.pushI32(0)
		} else {
			v.pushI32(a % b)
		}
	case opcode.I32RemU:
		b, a := v.popU32(), v.popU32()
		if b == 0 {
			panic(ErrIntegerDivisionByZero)
		}
		v.pushU32(a % b)
	case opcode.I32And:
		b, a := v.popI32(), v.popI32()
		v.pushI32(a & b)
	case opcode.I32Or:
		b, a := v.popI32(), v.popI32()
		v.pushI32(a | b)
	case opcode.I32Xor:
		b, a := v.popI32(), v.popI32()
		v.pushI32(a ^ b)
	case opcode.I32Shl:
		b, a := v.popU32(), v.popU32()
		v.pushU32(a << (b & 31))
	case opcode.I32ShrS:
		b, a := v.popU32(), v.popI32()
		v.pushI32(a >> (b & 31))
	case opcode.I32ShrU:
		b, a := v.popU32(), v.popU32()
		v.pushU32(a >> (b & 31))
	case opcode.I32Rotl:
		b, a := v.popU32(), v.popU32()
		v.pushU32(bits.RotateLeft32(a, int(b&31)))
	case opcode.I32Rotr:
		b, a := v.popU32(), v.popU32()
		v.pushU32(bits.RotateLeft32(a, -int(b&31)))

	case opcode.I64Clz:
		v.pushI64(int64(bits.LeadingZeros64(v.popU64())))
	case opcode.I64Ctz:
		v.pushI64(int64(bits.TrailingZeros64(v.popU64())))
	case opcode.I64Popcnt:
		v.pushI64(int64(bits.OnesCount64(v.popU64())))
	case opcode.I64Add:
		b, a := v.popI64(), v.popI64()
		v.pushI64(a + b)
	case opcode.I64Sub:
		b, a := v.popI64(), v.popI64()
		v.pushI64(a - b)
	case opcode.I64Mul:
		b, a := v.popI64(), v.popI64()
		v.pushI64(a * b)
	case opcode.I64DivS:
		b, a := v.popI64(), v.popI64()
		if b == 0 {
			panic(ErrIntegerDivisionByZero)
		}
		if a == math.MinInt64 && b == -1 {
			panic(ErrIntegerOverflow)
		}
		v.pushI64(a / b)
	case opcode.I64DivU:
		b, a := v.popU64(), v.popU64()
		if b == 0 {
			panic(ErrIntegerDivisionByZero)
		}
		v.pushU64(a / b)
	case opcode.I64RemS:
		b, a := v.popI64(), v.popI64()
		if b == 0 {
			panic(ErrIntegerDivisionByZero)
		}
		if a == math.MinInt64 && b == -1 {
			v.pushI64(0)
		} else {
			v.pushI64(a % b)
		}
	case opcode.I64RemU:
		b, a := v.popU64(), v.popU64()
		if b == 0 {
			panic(ErrIntegerDivisionByZero)
		}
		v.pushU64(a % b)
	case opcode.I64And:
		b, a := v.popI64(), v.popI64()
		v.pushI64(a & b)
	case opcode.I64Or:
		b, a := v.popI64(), v.popI64()
		v.pushI64(a | b)
	case opcode.I64Xor:
		b, a := v.popI64(), v.popI64()
		v.pushI64(a ^ b)
	case opcode.I64Shl:
		b, a := v.popU64(), v.popU64()
		v.pushU64(a << (b & 63))
	case opcode.I64ShrS:
		b, a := v.popU64(), v.popI64()
		v.pushI64(a >> (b & 63))
	case opcode.I64ShrU:
		b, a := v.popU64(), v.popU64()
		v.pushU64(a >> (b & 63))
	case opcode.I64Rotl:
		b, a := v.popU64(), v.popU64()
		v.pushU64(bits.RotateLeft64(a, int(b&63)))
	case opcode.I64Rotr:
		b, a := v.popU64(), v.popU64()
		v.pushU64(bits.RotateLeft64(a, -int(b&63)))

	case opcode.F32Abs:
		v.pushF32(math32.Abs(v.popF32()))
	case opcode.F32Neg:
		v.pushF32(-v.popF32())
	case opcode.F32Ceil:
		v.pushF32(math32.Ceil(v.popF32()))
	case opcode.F32Floor:
		v.pushF32(math32.Floor(v.popF32()))
	case opcode.F32Trunc:
		v.pushF32(math32.Trunc(v.popF32()))
	case opcode.F32Nearest:
		v.pushF32(math32.RoundToEven(v.popF32()))
	case opcode.F32Sqrt:
		v.pushF32(math32.Sqrt(v.popF32()))
	case opcode.F32Add:
		b, a := v.popF32(), v.popF32()
		v.pushF32(a + b)
	case opcode.F32Sub:
		b, a := v.popF32(), v.popF32()
		v.pushF32(a - b)
	case opcode.F32Mul:
		b, a := v.popF32(), v.popF32()
		v.pushF32(a * b)
	case opcode.F32Div:
		b, a := v.popF32(), v.popF32()
		v.pushF32(a / b)
	case opcode.F32Min:
		b, a := v.popF32(), v.popF32()
		v.pushF32(f32Min(a, b))
	case opcode.F32Max:
		b, a := v.popF32(), v.popF32()
		v.pushF32(f32Max(a, b))
	case opcode.F32Copysign:
		b, a := v.popF32(), v.popF32()
		v.pushF32(math32.Copysign(a, b))

	case opcode.F64Abs:
		v.pushF64(math.Abs(v.popF64()))
	case opcode.F64Neg:
		v.pushF64(-v.popF64())
	case opcode.F64Ceil:
		v.pushF64(math.Ceil(v.popF64()))
	case opcode.F64Floor:
		v.pushF64(math.Floor(v.popF64()))
	case opcode.F64Trunc:
		v.pushF64(math.Trunc(v.popF64()))
	case opcode.F64Nearest:
		v.pushF64(math.RoundToEven(v.popF64()))
	case opcode.F64Sqrt:
		v.pushF64(math.Sqrt(v.popF64()))
	case opcode.F64Add:
		b, a := v.popF64(), v.popF64()
		v.pushF64(a + b)
	case opcode.F64Sub:
		b, a := v.popF64(), v.popF64()
		v.pushF64(a - b)
	case opcode.F64Mul:
		b, a := v.popF64(), v.popF64()
		v.pushF64(a * b)
	case opcode.F64Div:
		b, a := v.popF64(), v.popF64()
		v.pushF64(a / b)
	case opcode.F64Min:
		b, a := v.popF64(), v.popF64()
		v.pushF64(f64Min(a, b))
	case opcode.F64Max:
		b, a := v.popF64(), v.popF64()
		v.pushF64(f64Max(a, b))
	case opcode.F64Copysign:
		b, a := v.popF64(), v.popF64()
		v.pushF64(math.Copysign(a, b))

	case opcode.I32WrapI64:
		v.pushI32(int32(v.popI64()))
	case opcode.I32TruncF32S:
		v.pushI32(int32(v.truncTrap(number.F32, number.I32, uint64(math.Float32bits(v.popF32())))))
	case opcode.I32TruncF32U:
		v.pushU32(uint32(v.truncTrap(number.F32, number.U32, uint64(math.Float32bits(v.popF32())))))
	case opcode.I32TruncF64S:
		v.pushI32(int32(v.truncTrap(number.F64, number.I32, math.Float64bits(v.popF64()))))
	case opcode.I32TruncF64U:
		v.pushU32(uint32(v.truncTrap(number.F64, number.U32, math.Float64bits(v.popF64()))))
	case opcode.I64ExtendI32S:
		v.pushI64(int64(v.popI32()))
	case opcode.I64ExtendI32U:
		v.pushI64(int64(v.popU32()))
	case opcode.I64TruncF32S:
		v.pushI64(int64(v.truncTrap(number.F32, number.I64, uint64(math.Float32bits(v.popF32())))))
	case opcode.I64TruncF32U:
		v.pushU64(v.truncTrap(number.F32, number.U64, uint64(math.Float32bits(v.popF32()))))
	case opcode.I64TruncF64S:
		v.pushI64(int64(v.truncTrap(number.F64, number.I64, math.Float64bits(v.popF64()))))
	case opcode.I64TruncF64U:
		v.pushU64(v.truncTrap(number.F64, number.U64, math.Float64bits(v.popF64())))

	case opcode.F32ConvertI32S:
		v.pushF32(float32(v.popI32()))
	case opcode.F32ConvertI32U:
		v.pushF32(float32(v.popU32()))
	case opcode.F32ConvertI64S:
		v.pushF32(float32(v.popI64()))
	case opcode.F32ConvertI64U:
		v.pushF32(float32(v.popU64()))
	case opcode.F32DemoteF64:
		v.pushF32(float32(v.popF64()))
	case opcode.F64ConvertI32S:
		v.pushF64(float64(v.popI32()))
	case opcode.F64ConvertI32U:
		v.pushF64(float64(v.popU32()))
	case opcode.F64ConvertI64S:
		v.pushF64(float64(v.popI64()))
	case opcode.F64ConvertI64U:
		v.pushF64(float64(v.popU64()))
	case opcode.F64PromoteF32:
		v.pushF64(float64(v.popF32()))

	case opcode.I32ReinterpretF32:
		v.pushU32(math.Float32bits(v.popF32()))
	case opcode.I64ReinterpretF64:
		v.pushU64(math.Float64bits(v.popF64()))
	case opcode.F32ReinterpretI32:
		v.pushF32(math.Float32frombits(v.popU32()))
	case opcode.F64ReinterpretI64:
		v.pushF64(math.Float64frombits(v.popU64()))

	case opcode.I32Extend8S:
		v.pushI32(int32(int8(v.popI32())))
	case opcode.I32Extend16S:
		v.pushI32(int32(int16(v.popI32())))
	case opcode.I64Extend8S:
		v.pushI64(int64(int8(v.popI64())))
	case opcode.I64Extend16S:
		v.pushI64(int64(int16(v.popI64())))
	case opcode.I64Extend32S:
		v.pushI64(int64(int32(v.popI64())))

	case opcode.I32Const:
		v.pushI32(instr.Imm.(wasm.I32Imm).Val)
	case opcode.I64Const:
		v.pushI64(instr.Imm.(wasm.I64Imm).Val)
	case opcode.F32Const:
		v.pushF32(instr.Imm.(wasm.F32Imm).Val)
	case opcode.F64Const:
		v.pushF64(instr.Imm.(wasm.F64Imm).Val)

	case opcode.I32Load, opcode.I64Load, opcode.F32Load, opcode.F64Load,
		opcode.I32Load8S, opcode.I32Load8U, opcode.I32Load16S, opcode.I32Load16U,
		opcode.I64Load8S, opcode.I64Load8U, opcode.I64Load16S, opcode.I64Load16U,
		opcode.I64Load32S, opcode.I64Load32U,
		opcode.I32Store, opcode.I64Store, opcode.F32Store, opcode.F64Store,
		opcode.I32Store8, opcode.I32Store16, opcode.I64Store8, opcode.I64Store16, opcode.I64Store32:
		v.execMemory(instr)
	case opcode.MemorySize:
		v.pushU32(v.mems[0].SizePages())
	case opcode.MemoryGrow:
		n := v.popU32()
		if v.cfg.GasPolicy != nil {
			cost := v.cfg.GasPolicy.GetCostForMalloc(int(n))
			v.gas.Used += cost
			if v.gas.Limit > 0 && v.gas.Used > v.gas.Limit {
				panic(ErrGasExhausted)
			}
		}
		v.pushI32(int32(v.mems[0].Grow(n)))

	default:
		panic(ErrUnknownOpcode)
	}
}

func (v *VM) truncTrap(from, to number.Type, bits uint64) uint64 {
	r, trap := number.FloatTruncate(from, to, bits)
	switch trap {
	case number.NanTrap:
		panic(ErrInvalidIntConversion)
	case number.ConvertTrap:
		panic(ErrIntegerOverflow)
	}
	return r
}

func f32Min(a, b float32) float32 {
	if math32.IsNaN(a) || math32.IsNaN(b) {
		return math32.NaN()
	}
	if a == 0 && b == 0 {
		if math32.Signbit(a) {
			return a
		}
		return b
	}
	if a < b {
		return a
	}
	return b
}

func f32Max(a, b float32) float32 {
	if math32.IsNaN(a) || math32.IsNaN(b) {
		return math32.NaN()
	}
	if a == 0 && b == 0 {
		if math32.Signbit(a) {
			return b
		}
		return a
	}
	if a > b {
		return a
	}
	return b
}

func f64Min(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return a
		}
		return b
	}
	if a < b {
		return a
	}
	return b
}

func f64Max(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return b
		}
		return a
	}
	if a > b {
		return a
	}
	return b
}
