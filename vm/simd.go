package vm

import (
	"math"
	"math/bits"

	"github.com/chewxy/math32"
	"github.com/vertexvm/vertexvm/number"
	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

// dispatchFD handles the full 0xFD-prefixed SIMD128 instruction set.
// Lane-wise arithmetic is expressed as small per-width map helpers
// (mapI8x16, mapI16x8, ...) to keep each instruction's case a
// one-liner instead of a hand-unrolled 8/16-lane loop.
func (v *VM) dispatchFD(instr wasm.Instruction) {
	switch instr.FD {
	case opcode.V128Load:
		b := v.loadV128Bytes(instr, 16)
		var arr [16]byte
		copy(arr[:], b)
		v.push(value.V128Val(value.V128FromBytes(arr)))
	case opcode.V128Load8Splat:
		b := v.loadV128Bytes(instr, 1)
		v.push(value.V128Val(value.V128FromI8x16([16]int8{int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0]), int8(b[0])})))
	case opcode.V128Load16Splat:
		b := v.loadV128Bytes(instr, 2)
		x := int16(uint16(b[0]) | uint16(b[1])<<8)
		v.push(value.V128Val(value.V128FromI16x8([8]int16{x, x, x, x, x, x, x, x})))
	case opcode.V128Load32Splat:
		b := v.loadV128Bytes(instr, 4)
		x := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
		v.push(value.V128Val(value.V128FromI32x4([4]int32{x, x, x, x})))
	case opcode.V128Load64Splat:
		b := v.loadV128Bytes(instr, 8)
		x := int64(le64(b))
		v.push(value.V128Val(value.V128FromI64x2([2]int64{x, x})))
	case opcode.V128Load32Zero:
		b := v.loadV128Bytes(instr, 4)
		x := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
		v.push(value.V128Val(value.V128FromI32x4([4]int32{x, 0, 0, 0})))
	case opcode.V128Load64Zero:
		b := v.loadV128Bytes(instr, 8)
		v.push(value.V128Val(value.V128FromI64x2([2]int64{int64(le64(b)), 0})))
	case opcode.V128Load8x8S, opcode.V128Load8x8U, opcode.V128Load16x4S, opcode.V128Load16x4U,
		opcode.V128Load32x2S, opcode.V128Load32x2U:
		v.loadWiden(instr)
	case opcode.V128Load8Lane, opcode.V128Load16Lane, opcode.V128Load32Lane, opcode.V128Load64Lane:
		v.loadLane(instr)
	case opcode.V128Store8Lane, opcode.V128Store16Lane, opcode.V128Store32Lane, opcode.V128Store64Lane:
		v.storeLane(instr)
	case opcode.V128Store:
		val := v.popV128()
		arg := instr.Imm.(wasm.SIMDMemoryImm).Arg
		addr := v.effectiveAddr(arg)
		bytes := val.Bytes()
		v.writeMem(v.mems[arg.MemIdx], addr, bytes[:])

	case opcode.V128Const:
		v.push(value.V128Val(value.V128FromBytes(instr.Imm.(wasm.V128ConstImm).Bytes)))

	case opcode.I8x16Shuffle:
		lanes := instr.Imm.(wasm.ShuffleImm).Lanes
		b := v.popV128Val()
		a := v.popV128Val()
		ba, bb := a.Bytes(), b.Bytes()
		var ab [32]byte
		copy(ab[:16], ba[:])
		copy(ab[16:], bb[:])
		var out [16]byte
		for i, l := range lanes {
			out[i] = ab[l]
		}
		v.push(value.V128Val(value.V128FromBytes(out)))
	case opcode.I8x16Swizzle:
		idx := v.popV128Val().U8x16()
		src := v.popV128Val().U8x16()
		var out [16]int8
		for i, l := range idx {
			if l < 16 {
				out[i] = int8(src[l])
			}
		}
		v.push(value.V128Val(value.V128FromI8x16(out)))

	case opcode.I8x16Splat:
		x := int8(v.popI32())
		v.push(value.V128Val(value.V128FromI8x16([16]int8{x, x, x, x, x, x, x, x, x, x, x, x, x, x, x, x})))
	case opcode.I16x8Splat:
		x := int16(v.popI32())
		v.push(value.V128Val(value.V128FromI16x8([8]int16{x, x, x, x, x, x, x, x})))
	case opcode.I32x4Splat:
		x := v.popI32()
		v.push(value.V128Val(value.V128FromI32x4([4]int32{x, x, x, x})))
	case opcode.I64x2Splat:
		x := v.popI64()
		v.push(value.V128Val(value.V128FromI64x2([2]int64{x, x})))
	case opcode.F32x4Splat:
		x := v.popF32()
		v.push(value.V128Val(value.V128FromF32x4([4]float32{x, x, x, x})))
	case opcode.F64x2Splat:
		x := v.popF64()
		v.push(value.V128Val(value.V128FromF64x2([2]float64{x, x})))

	case opcode.I8x16ExtractLaneS:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		v.pushI32(int32(v.popV128Val().I8x16()[lane]))
	case opcode.I8x16ExtractLaneU:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		v.pushU32(uint32(v.popV128Val().U8x16()[lane]))
	case opcode.I16x8ExtractLaneS:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		v.pushI32(int32(v.popV128Val().I16x8()[lane]))
	case opcode.I16x8ExtractLaneU:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		v.pushU32(uint32(v.popV128Val().U16x8()[lane]))
	case opcode.I32x4ExtractLane:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		v.pushI32(v.popV128Val().I32x4()[lane])
	case opcode.I64x2ExtractLane:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		v.pushI64(v.popV128Val().I64x2()[lane])
	case opcode.F32x4ExtractLane:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		v.pushF32(v.popV128Val().F32x4()[lane])
	case opcode.F64x2ExtractLane:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		v.pushF64(v.popV128Val().F64x2()[lane])

	case opcode.I8x16ReplaceLane:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		x := int8(v.popI32())
		lanes := v.popV128Val().I8x16()
		lanes[lane] = x
		v.push(value.V128Val(value.V128FromI8x16(lanes)))
	case opcode.I16x8ReplaceLane:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		x := int16(v.popI32())
		lanes := v.popV128Val().I16x8()
		lanes[lane] = x
		v.push(value.V128Val(value.V128FromI16x8(lanes)))
	case opcode.I32x4ReplaceLane:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		x := v.popI32()
		lanes := v.popV128Val().I32x4()
		lanes[lane] = x
		v.push(value.V128Val(value.V128FromI32x4(lanes)))
	case opcode.I64x2ReplaceLane:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		x := v.popI64()
		lanes := v.popV128Val().I64x2()
		lanes[lane] = x
		v.push(value.V128Val(value.V128FromI64x2(lanes)))
	case opcode.F32x4ReplaceLane:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		x := v.popF32()
		lanes := v.popV128Val().F32x4()
		lanes[lane] = x
		v.push(value.V128Val(value.V128FromF32x4(lanes)))
	case opcode.F64x2ReplaceLane:
		lane := instr.Imm.(wasm.SIMDLaneImm).Lane
		x := v.popF64()
		lanes := v.popV128Val().F64x2()
		lanes[lane] = x
		v.push(value.V128Val(value.V128FromF64x2(lanes)))

	case opcode.I8x16Eq:
		v.cmpI8x16(func(a, b int8) bool { return a == b })
	case opcode.I8x16Ne:
		v.cmpI8x16(func(a, b int8) bool { return a != b })
	case opcode.I8x16LtS:
		v.cmpI8x16(func(a, b int8) bool { return a < b })
	case opcode.I8x16GtS:
		v.cmpI8x16(func(a, b int8) bool { return a > b })
	case opcode.I8x16LeS:
		v.cmpI8x16(func(a, b int8) bool { return a <= b })
	case opcode.I8x16GeS:
		v.cmpI8x16(func(a, b int8) bool { return a >= b })
	case opcode.I8x16LtU:
		v.cmpU8x16(func(a, b uint8) bool { return a < b })
	case opcode.I8x16GtU:
		v.cmpU8x16(func(a, b uint8) bool { return a > b })
	case opcode.I8x16LeU:
		v.cmpU8x16(func(a, b uint8) bool { return a <= b })
	case opcode.I8x16GeU:
		v.cmpU8x16(func(a, b uint8) bool { return a >= b })

	case opcode.I16x8Eq:
		v.cmpI16x8(func(a, b int16) bool { return a == b })
	case opcode.I16x8Ne:
		v.cmpI16x8(func(a, b int16) bool { return a != b })
	case opcode.I16x8LtS:
		v.cmpI16x8(func(a, b int16) bool { return a < b })
	case opcode.I16x8GtS:
		v.cmpI16x8(func(a, b int16) bool { return a > b })
	case opcode.I16x8LeS:
		v.cmpI16x8(func(a, b int16) bool { return a <= b })
	case opcode.I16x8GeS:
		v.cmpI16x8(func(a, b int16) bool { return a >= b })
	case opcode.I16x8LtU:
		v.cmpU16x8(func(a, b uint16) bool { return a < b })
	case opcode.I16x8GtU:
		v.cmpU16x8(func(a, b uint16) bool { return a > b })
	case opcode.I16x8LeU:
		v.cmpU16x8(func(a, b uint16) bool { return a <= b })
	case opcode.I16x8GeU:
		v.cmpU16x8(func(a, b uint16) bool { return a >= b })

	case opcode.I32x4Eq:
		v.cmpI32x4(func(a, b int32) bool { return a == b })
	case opcode.I32x4Ne:
		v.cmpI32x4(func(a, b int32) bool { return a != b })
	case opcode.I32x4LtS:
		v.cmpI32x4(func(a, b int32) bool { return a < b })
	case opcode.I32x4GtS:
		v.cmpI32x4(func(a, b int32) bool { return a > b })
	case opcode.I32x4LeS:
		v.cmpI32x4(func(a, b int32) bool { return a <= b })
	case opcode.I32x4GeS:
		v.cmpI32x4(func(a, b int32) bool { return a >= b })
	case opcode.I32x4LtU:
		v.cmpU32x4(func(a, b uint32) bool { return a < b })
	case opcode.I32x4GtU:
		v.cmpU32x4(func(a, b uint32) bool { return a > b })
	case opcode.I32x4LeU:
		v.cmpU32x4(func(a, b uint32) bool { return a <= b })
	case opcode.I32x4GeU:
		v.cmpU32x4(func(a, b uint32) bool { return a >= b })

	case opcode.I64x2Eq:
		v.cmpI64x2(func(a, b int64) bool { return a == b })
	case opcode.I64x2Ne:
		v.cmpI64x2(func(a, b int64) bool { return a != b })
	case opcode.I64x2LtS:
		v.cmpI64x2(func(a, b int64) bool { return a < b })
	case opcode.I64x2GtS:
		v.cmpI64x2(func(a, b int64) bool { return a > b })
	case opcode.I64x2LeS:
		v.cmpI64x2(func(a, b int64) bool { return a <= b })
	case opcode.I64x2GeS:
		v.cmpI64x2(func(a, b int64) bool { return a >= b })

	case opcode.F32x4Eq:
		v.cmpF32x4(func(a, b float32) bool { return a == b })
	case opcode.F32x4Ne:
		v.cmpF32x4(func(a, b float32) bool { return a != b })
	case opcode.F32x4Lt:
		v.cmpF32x4(func(a, b float32) bool { return a < b })
	case opcode.F32x4Gt:
		v.cmpF32x4(func(a, b float32) bool { return a > b })
	case opcode.F32x4Le:
		v.cmpF32x4(func(a, b float32) bool { return a <= b })
	case opcode.F32x4Ge:
		v.cmpF32x4(func(a, b float32) bool { return a >= b })
	case opcode.F64x2Eq:
		v.cmpF64x2(func(a, b float64) bool { return a == b })
	case opcode.F64x2Ne:
		v.cmpF64x2(func(a, b float64) bool { return a != b })
	case opcode.F64x2Lt:
		v.cmpF64x2(func(a, b float64) bool { return a < b })
	case opcode.F64x2Gt:
		v.cmpF64x2(func(a, b float64) bool { return a > b })
	case opcode.F64x2Le:
		v.cmpF64x2(func(a, b float64) bool { return a <= b })
	case opcode.F64x2Ge:
		v.cmpF64x2(func(a, b float64) bool { return a >= b })

	case opcode.V128Not:
		a := v.popV128()
		v.pushV128(value.V128{^a[0], ^a[1], ^a[2], ^a[3]})
	case opcode.V128And:
		b, a := v.popV128(), v.popV128()
		v.pushV128(value.V128{a[0] & b[0], a[1] & b[1], a[2] & b[2], a[3] & b[3]})
	case opcode.V128Andnot:
		b, a := v.popV128(), v.popV128()
		v.pushV128(value.V128{a[0] &^ b[0], a[1] &^ b[1], a[2] &^ b[2], a[3] &^ b[3]})
	case opcode.V128Or:
		b, a := v.popV128(), v.popV128()
		v.pushV128(value.V128{a[0] | b[0], a[1] | b[1], a[2] | b[2], a[3] | b[3]})
	case opcode.V128Xor:
		b, a := v.popV128(), v.popV128()
		v.pushV128(value.V128{a[0] ^ b[0], a[1] ^ b[1], a[2] ^ b[2], a[3] ^ b[3]})
	case opcode.V128Bitselect:
		c, b, a := v.popV128(), v.popV128(), v.popV128()
		var out value.V128
		for i := 0; i < 4; i++ {
			out[i] = (a[i] & c[i]) | (b[i] &^ c[i])
		}
		v.pushV128(out)
	case opcode.V128AnyTrue:
		v.pushBool(!v.popV128Val().AllZero())

	case opcode.I8x16Abs:
		v.mapI8x16(func(a int8) int8 {
			if a < 0 {
				return -a
			}
			return a
		})
	case opcode.I8x16Neg:
		v.mapI8x16(func(a int8) int8 { return -a })
	case opcode.I8x16Popcnt:
		v.mapU8x16(func(a uint8) uint8 { return uint8(bits.OnesCount8(a)) })
	case opcode.I8x16AllTrue:
		v.allTrue8(v.popV128Val().U8x16())
	case opcode.I8x16Bitmask:
		v.bitmask8(v.popV128Val().I8x16())
	case opcode.I8x16NarrowI16x8S:
		v.narrow16To8(true)
	case opcode.I8x16NarrowI16x8U:
		v.narrow16To8(false)
	case opcode.I8x16Shl:
		shift := v.popU32() & 7
		v.mapU8x16(func(a uint8) uint8 { return a << shift })
	case opcode.I8x16ShrS:
		shift := v.popU32() & 7
		v.mapI8x16(func(a int8) int8 { return a >> shift })
	case opcode.I8x16ShrU:
		shift := v.popU32() & 7
		v.mapU8x16(func(a uint8) uint8 { return a >> shift })
	case opcode.I8x16Add:
		v.binI8x16(func(a, b int8) int8 { return a + b })
	case opcode.I8x16Sub:
		v.binI8x16(func(a, b int8) int8 { return a - b })
	case opcode.I8x16AddSatS:
		v.binI8x16(satAddS8)
	case opcode.I8x16AddSatU:
		v.binU8x16(satAddU8)
	case opcode.I8x16SubSatS:
		v.binI8x16(satSubS8)
	case opcode.I8x16SubSatU:
		v.binU8x16(satSubU8)
	case opcode.I8x16MinS:
		v.binI8x16(func(a, b int8) int8 {
			if a < b {
				return a
			}
			return b
		})
	case opcode.I8x16MinU:
		v.binU8x16(func(a, b uint8) uint8 {
			if a < b {
				return a
			}
			return b
		})
	case opcode.I8x16MaxS:
		v.binI8x16(func(a, b int8) int8 {
			if a > b {
				return a
			}
			return b
		})
	case opcode.I8x16MaxU:
		v.binU8x16(func(a, b uint8) uint8 {
			if a > b {
				return a
			}
			return b
		})
	case opcode.I8x16AvgrU:
		v.binU8x16(func(a, b uint8) uint8 { return uint8((uint16(a) + uint16(b) + 1) / 2) })

	case opcode.I16x8Abs:
		v.mapI16x8(func(a int16) int16 {
			if a < 0 {
				return -a
			}
			return a
		})
	case opcode.I16x8Neg:
		v.mapI16x8(func(a int16) int16 { return -a })
	case opcode.I16x8AllTrue:
		v.allTrue16(v.popV128Val().U16x8())
	case opcode.I16x8Bitmask:
		v.bitmask16(v.popV128Val().I16x8())
	case opcode.I16x8NarrowI32x4S:
		v.narrow32To16(true)
	case opcode.I16x8NarrowI32x4U:
		v.narrow32To16(false)
	case opcode.I16x8ExtendLowI8x16S:
		v.extendI8ToI16(true, true)
	case opcode.I16x8ExtendHighI8x16S:
		v.extendI8ToI16(false, true)
	case opcode.I16x8ExtendLowI8x16U:
		v.extendI8ToI16(true, false)
	case opcode.I16x8ExtendHighI8x16U:
		v.extendI8ToI16(false, false)
	case opcode.I16x8Shl:
		shift := v.popU32() & 15
		v.mapU16x8(func(a uint16) uint16 { return a << shift })
	case opcode.I16x8ShrS:
		shift := v.popU32() & 15
		v.mapI16x8(func(a int16) int16 { return a >> shift })
	case opcode.I16x8ShrU:
		shift := v.popU32() & 15
		v.mapU16x8(func(a uint16) uint16 { return a >> shift })
	case opcode.I16x8Add:
		v.binI16x8(func(a, b int16) int16 { return a + b })
	case opcode.I16x8Sub:
		v.binI16x8(func(a, b int16) int16 { return a - b })
	case opcode.I16x8Mul:
		v.binI16x8(func(a, b int16) int16 { return a * b })
	case opcode.I16x8AddSatS:
		v.binI16x8(satAddS16)
	case opcode.I16x8AddSatU:
		v.binU16x8(satAddU16)
	case opcode.I16x8SubSatS:
		v.binI16x8(satSubS16)
	case opcode.I16x8SubSatU:
		v.binU16x8(satSubU16)
	case opcode.I16x8MinS:
		v.binI16x8(func(a, b int16) int16 {
			if a < b {
				return a
			}
			return b
		})
	case opcode.I16x8MinU:
		v.binU16x8(func(a, b uint16) uint16 {
			if a < b {
				return a
			}
			return b
		})
	case opcode.I16x8MaxS:
		v.binI16x8(func(a, b int16) int16 {
			if a > b {
				return a
			}
			return b
		})
	case opcode.I16x8MaxU:
		v.binU16x8(func(a, b uint16) uint16 {
			if a > b {
				return a
			}
			return b
		})
	case opcode.I16x8AvgrU:
		v.binU16x8(func(a, b uint16) uint16 { return uint16((uint32(a) + uint32(b) + 1) / 2) })
	case opcode.I16x8Q15mulrSatS:
		v.binI16x8(func(a, b int16) int16 {
			r := (int32(a)*int32(b) + (1 << 14)) >> 15
			if r > math.MaxInt16 {
				return math.MaxInt16
			}
			if r < math.MinInt16 {
				return math.MinInt16
			}
			return int16(r)
		})
	case opcode.I16x8ExtaddPairwiseI8x16S:
		v.extaddPairwise8To16(true)
	case opcode.I16x8ExtaddPairwiseI8x16U:
		v.extaddPairwise8To16(false)
	case opcode.I16x8ExtmulLowI8x16S:
		v.extmul8To16(true, true)
	case opcode.I16x8ExtmulHighI8x16S:
		v.extmul8To16(false, true)
	case opcode.I16x8ExtmulLowI8x16U:
		v.extmul8To16(true, false)
	case opcode.I16x8ExtmulHighI8x16U:
		v.extmul8To16(false, false)

	case opcode.I32x4Abs:
		v.mapI32x4(func(a int32) int32 {
			if a < 0 {
				return -a
			}
			return a
		})
	case opcode.I32x4Neg:
		v.mapI32x4(func(a int32) int32 { return -a })
	case opcode.I32x4AllTrue:
		v.allTrue32(v.popV128Val().U32x4())
	case opcode.I32x4Bitmask:
		v.bitmask32(v.popV128Val().I32x4())
	case opcode.I32x4ExtendLowI16x8S:
		v.extendI16ToI32(true, true)
	case opcode.I32x4ExtendHighI16x8S:
		v.extendI16ToI32(false, true)
	case opcode.I32x4ExtendLowI16x8U:
		v.extendI16ToI32(true, false)
	case opcode.I32x4ExtendHighI16x8U:
		v.extendI16ToI32(false, false)
	case opcode.I32x4Shl:
		shift := v.popU32() & 31
		v.mapU32x4(func(a uint32) uint32 { return a << shift })
	case opcode.I32x4ShrS:
		shift := v.popU32() & 31
		v.mapI32x4(func(a int32) int32 { return a >> shift })
	case opcode.I32x4ShrU:
		shift := v.popU32() & 31
		v.mapU32x4(func(a uint32) uint32 { return a >> shift })
	case opcode.I32x4Add:
		v.binI32x4(func(a, b int32) int32 { return a + b })
	case opcode.I32x4Sub:
		v.binI32x4(func(a, b int32) int32 { return a - b })
	case opcode.I32x4Mul:
		v.binI32x4(func(a, b int32) int32 { return a * b })
	case opcode.I32x4MinS:
		v.binI32x4(func(a, b int32) int32 {
			if a < b {
				return a
			}
			return b
		})
	case opcode.I32x4MinU:
		v.binU32x4(func(a, b uint32) uint32 {
			if a < b {
				return a
			}
			return b
		})
	case opcode.I32x4MaxS:
		v.binI32x4(func(a, b int32) int32 {
			if a > b {
				return a
			}
			return b
		})
	case opcode.I32x4MaxU:
		v.binU32x4(func(a, b uint32) uint32 {
			if a > b {
				return a
			}
			return b
		})
	case opcode.I32x4DotI16x8S:
		b := v.popV128Val().I16x8()
		a := v.popV128Val().I16x8()
		var out [4]int32
		for i := 0; i < 4; i++ {
			out[i] = int32(a[2*i])*int32(b[2*i]) + int32(a[2*i+1])*int32(b[2*i+1])
		}
		v.push(value.V128Val(value.V128FromI32x4(out)))
	case opcode.I32x4ExtaddPairwiseI16x8S:
		v.extaddPairwise16To32(true)
	case opcode.I32x4ExtaddPairwiseI16x8U:
		v.extaddPairwise16To32(false)
	case opcode.I32x4ExtmulLowI16x8S:
		v.extmul16To32(true, true)
	case opcode.I32x4ExtmulHighI16x8S:
		v.extmul16To32(false, true)
	case opcode.I32x4ExtmulLowI16x8U:
		v.extmul16To32(true, false)
	case opcode.I32x4ExtmulHighI16x8U:
		v.extmul16To32(false, false)

	case opcode.I64x2Abs:
		v.mapI64x2(func(a int64) int64 {
			if a < 0 {
				return -a
			}
			return a
		})
	case opcode.I64x2Neg:
		v.mapI64x2(func(a int64) int64 { return -a })
	case opcode.I64x2AllTrue:
		v.allTrue64(v.popV128Val().U64x2())
	case opcode.I64x2Bitmask:
		v.bitmask64(v.popV128Val().I64x2())
	case opcode.I64x2ExtendLowI32x4S:
		v.extendI32ToI64(true, true)
	case opcode.I64x2ExtendHighI32x4S:
		v.extendI32ToI64(false, true)
	case opcode.I64x2ExtendLowI32x4U:
		v.extendI32ToI64(true, false)
	case opcode.I64x2ExtendHighI32x4U:
		v.extendI32ToI64(false, false)
	case opcode.I64x2Shl:
		shift := v.popU32() & 63
		v.mapU64x2(func(a uint64) uint64 { return a << shift })
	case opcode.I64x2ShrS:
		shift := v.popU32() & 63
		v.mapI64x2(func(a int64) int64 { return a >> shift })
	case opcode.I64x2ShrU:
		shift := v.popU32() & 63
		v.mapU64x2(func(a uint64) uint64 { return a >> shift })
	case opcode.I64x2Add:
		v.binI64x2(func(a, b int64) int64 { return a + b })
	case opcode.I64x2Sub:
		v.binI64x2(func(a, b int64) int64 { return a - b })
	case opcode.I64x2Mul:
		v.binI64x2(func(a, b int64) int64 { return a * b })
	case opcode.I64x2ExtmulLowI32x4S:
		v.extmul32To64(true, true)
	case opcode.I64x2ExtmulHighI32x4S:
		v.extmul32To64(false, true)
	case opcode.I64x2ExtmulLowI32x4U:
		v.extmul32To64(true, false)
	case opcode.I64x2ExtmulHighI32x4U:
		v.extmul32To64(false, false)

	case opcode.F32x4Ceil:
		v.mapF32x4(math32.Ceil)
	case opcode.F32x4Floor:
		v.mapF32x4(math32.Floor)
	case opcode.F32x4Trunc:
		v.mapF32x4(math32.Trunc)
	case opcode.F32x4Nearest:
		v.mapF32x4(math32.RoundToEven)
	case opcode.F32x4Abs:
		v.mapF32x4(math32.Abs)
	case opcode.F32x4Neg:
		v.mapF32x4(func(a float32) float32 { return -a })
	case opcode.F32x4Sqrt:
		v.mapF32x4(math32.Sqrt)
	case opcode.F32x4Add:
		v.binF32x4(func(a, b float32) float32 { return a + b })
	case opcode.F32x4Sub:
		v.binF32x4(func(a, b float32) float32 { return a - b })
	case opcode.F32x4Mul:
		v.binF32x4(func(a, b float32) float32 { return a * b })
	case opcode.F32x4Div:
		v.binF32x4(func(a, b float32) float32 { return a / b })
	case opcode.F32x4Min:
		v.binF32x4(f32Min)
	case opcode.F32x4Max:
		v.binF32x4(f32Max)
	case opcode.F32x4Pmin:
		v.binF32x4(func(a, b float32) float32 {
			if b < a {
				return b
			}
			return a
		})
	case opcode.F32x4Pmax:
		v.binF32x4(func(a, b float32) float32 {
			if a < b {
				return b
			}
			return a
		})

	case opcode.F64x2Ceil:
		v.mapF64x2(math.Ceil)
	case opcode.F64x2Floor:
		v.mapF64x2(math.Floor)
	case opcode.F64x2Trunc:
		v.mapF64x2(math.Trunc)
	case opcode.F64x2Nearest:
		v.mapF64x2(math.RoundToEven)
	case opcode.F64x2Abs:
		v.mapF64x2(math.Abs)
	case opcode.F64x2Neg:
		v.mapF64x2(func(a float64) float64 { return -a })
	case opcode.F64x2Sqrt:
		v.mapF64x2(math.Sqrt)
	case opcode.F64x2Add:
		v.binF64x2(func(a, b float64) float64 { return a + b })
	case opcode.F64x2Sub:
		v.binF64x2(func(a, b float64) float64 { return a - b })
	case opcode.F64x2Mul:
		v.binF64x2(func(a, b float64) float64 { return a * b })
	case opcode.F64x2Div:
		v.binF64x2(func(a, b float64) float64 { return a / b })
	case opcode.F64x2Min:
		v.binF64x2(f64Min)
	case opcode.F64x2Max:
		v.binF64x2(f64Max)
	case opcode.F64x2Pmin:
		v.binF64x2(func(a, b float64) float64 {
			if b < a {
				return b
			}
			return a
		})
	case opcode.F64x2Pmax:
		v.binF64x2(func(a, b float64) float64 {
			if a < b {
				return b
			}
			return a
		})

	case opcode.I32x4TruncSatF32x4S:
		v.truncSatV128(number.F32, number.I32)
	case opcode.I32x4TruncSatF32x4U:
		v.truncSatV128(number.F32, number.U32)
	case opcode.F32x4ConvertI32x4S:
		v.mapI32x4ToF32x4(func(a int32) float32 { return float32(a) })
	case opcode.F32x4ConvertI32x4U:
		v.mapU32x4ToF32x4(func(a uint32) float32 { return float32(a) })
	case opcode.F32x4DemoteF64x2Zero:
		lanes := v.popV128Val().F64x2()
		v.push(value.V128Val(value.V128FromF32x4([4]float32{float32(lanes[0]), float32(lanes[1]), 0, 0})))
	case opcode.F64x2PromoteLowF32x4:
		lanes := v.popV128Val().F32x4()
		v.push(value.V128Val(value.V128FromF64x2([2]float64{float64(lanes[0]), float64(lanes[1])})))
	case opcode.I32x4TruncSatF64x2SZero:
		v.truncSatF64x2Zero(number.I32)
	case opcode.I32x4TruncSatF64x2UZero:
		v.truncSatF64x2Zero(number.U32)
	case opcode.F64x2ConvertLowI32x4S:
		lanes := v.popV128Val().I32x4()
		v.push(value.V128Val(value.V128FromF64x2([2]float64{float64(lanes[0]), float64(lanes[1])})))
	case opcode.F64x2ConvertLowI32x4U:
		lanes := v.popV128Val().U32x4()
		v.push(value.V128Val(value.V128FromF64x2([2]float64{float64(lanes[0]), float64(lanes[1])})))

	default:
		panic(ErrUnknownOpcode)
	}
}

func le64(b []byte) uint64 {
	var x uint64
	for i := 7; i >= 0; i-- {
		x = x<<8 | uint64(b[i])
	}
	return x
}

func (v *VM) popV128() value.V128   { return v.pop().AsV128() }
func (v *VM) popV128Val() value.V128 { return v.popV128() }
func (v *VM) pushV128(x value.V128) { v.push(value.V128Val(x)) }

func (v *VM) loadV128Bytes(instr wasm.Instruction, n int) []byte {
	arg := instr.Imm.(wasm.SIMDMemoryImm).Arg
	addr := v.effectiveAddr(arg)
	return v.readMem(v.mems[arg.MemIdx], addr, n)
}

func (v *VM) loadWiden(instr wasm.Instruction) {
	b := v.loadV128Bytes(instr, 8)
	switch instr.FD {
	case opcode.V128Load8x8S:
		var out [8]int16
		for i := 0; i < 8; i++ {
			out[i] = int16(int8(b[i]))
		}
		v.push(value.V128Val(value.V128FromI16x8(out)))
	case opcode.V128Load8x8U:
		var out [8]int16
		for i := 0; i < 8; i++ {
			out[i] = int16(uint8(b[i]))
		}
		v.push(value.V128Val(value.V128FromI16x8(out)))
	case opcode.V128Load16x4S:
		var out [4]int32
		for i := 0; i < 4; i++ {
			out[i] = int32(int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8))
		}
		v.push(value.V128Val(value.V128FromI32x4(out)))
	case opcode.V128Load16x4U:
		var out [4]int32
		for i := 0; i < 4; i++ {
			out[i] = int32(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
		}
		v.push(value.V128Val(value.V128FromI32x4(out)))
	case opcode.V128Load32x2S:
		var out [2]int64
		for i := 0; i < 2; i++ {
			x := uint32(b[4*i]) | uint32(b[4*i+1])<<8 | uint32(b[4*i+2])<<16 | uint32(b[4*i+3])<<24
			out[i] = int64(int32(x))
		}
		v.push(value.V128Val(value.V128FromI64x2(out)))
	case opcode.V128Load32x2U:
		var out [2]int64
		for i := 0; i < 2; i++ {
			x := uint32(b[4*i]) | uint32(b[4*i+1])<<8 | uint32(b[4*i+2])<<16 | uint32(b[4*i+3])<<24
			out[i] = int64(x)
		}
		v.push(value.V128Val(value.V128FromI64x2(out)))
	}
}

func (v *VM) loadLane(instr wasm.Instruction) {
	imm := instr.Imm.(wasm.SIMDMemoryImm)
	lanes := v.popV128Val()
	addr := v.effectiveAddr(imm.Arg)
	switch instr.FD {
	case opcode.V128Load8Lane:
		b := v.readMem(v.mems[imm.Arg.MemIdx], addr, 1)
		l := lanes.I8x16()
		l[imm.Lane] = int8(b[0])
		v.push(value.V128Val(value.V128FromI8x16(l)))
	case opcode.V128Load16Lane:
		b := v.readMem(v.mems[imm.Arg.MemIdx], addr, 2)
		l := lanes.I16x8()
		l[imm.Lane] = int16(uint16(b[0]) | uint16(b[1])<<8)
		v.push(value.V128Val(value.V128FromI16x8(l)))
	case opcode.V128Load32Lane:
		b := v.readMem(v.mems[imm.Arg.MemIdx], addr, 4)
		l := lanes.I32x4()
		l[imm.Lane] = int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
		v.push(value.V128Val(value.V128FromI32x4(l)))
	case opcode.V128Load64Lane:
		b := v.readMem(v.mems[imm.Arg.MemIdx], addr, 8)
		l := lanes.I64x2()
		l[imm.Lane] = int64(le64(b))
		v.push(value.V128Val(value.V128FromI64x2(l)))
	}
}

func (v *VM) storeLane(instr wasm.Instruction) {
	imm := instr.Imm.(wasm.SIMDMemoryImm)
	lanes := v.popV128Val()
	addr := v.effectiveAddr(imm.Arg)
	switch instr.FD {
	case opcode.V128Store8Lane:
		v.writeMem(v.mems[imm.Arg.MemIdx], addr, []byte{lanes.U8x16()[imm.Lane]})
	case opcode.V128Store16Lane:
		x := lanes.U16x8()[imm.Lane]
		v.writeMem(v.mems[imm.Arg.MemIdx], addr, []byte{byte(x), byte(x >> 8)})
	case opcode.V128Store32Lane:
		x := lanes.U32x4()[imm.Lane]
		v.writeMem(v.mems[imm.Arg.MemIdx], addr, []byte{byte(x), byte(x >> 8), byte(x >> 16), byte(x >> 24)})
	case opcode.V128Store64Lane:
		x := lanes.U64x2()[imm.Lane]
		buf := make([]byte, 8)
		for i := 0; i < 8; i++ {
			buf[i] = byte(x >> (8 * i))
		}
		v.writeMem(v.mems[imm.Arg.MemIdx], addr, buf)
	}
}

// Per-width unary/binary lane map helpers.

func (v *VM) mapI8x16(f func(int8) int8) {
	a := v.popV128Val().I8x16()
	for i := range a {
		a[i] = f(a[i])
	}
	v.push(value.V128Val(value.V128FromI8x16(a)))
}
func (v *VM) mapU8x16(f func(uint8) uint8) {
	a := v.popV128Val().U8x16()
	var out [16]int8
	for i := range a {
		out[i] = int8(f(a[i]))
	}
	v.push(value.V128Val(value.V128FromI8x16(out)))
}
func (v *VM) binI8x16(f func(int8, int8) int8) {
	b := v.popV128Val().I8x16()
	a := v.popV128Val().I8x16()
	for i := range a {
		a[i] = f(a[i], b[i])
	}
	v.push(value.V128Val(value.V128FromI8x16(a)))
}
func (v *VM) binU8x16(f func(uint8, uint8) uint8) {
	b := v.popV128Val().U8x16()
	a := v.popV128Val().U8x16()
	var out [16]int8
	for i := range a {
		out[i] = int8(f(a[i], b[i]))
	}
	v.push(value.V128Val(value.V128FromI8x16(out)))
}

func (v *VM) mapI16x8(f func(int16) int16) {
	a := v.popV128Val().I16x8()
	for i := range a {
		a[i] = f(a[i])
	}
	v.push(value.V128Val(value.V128FromI16x8(a)))
}
func (v *VM) mapU16x8(f func(uint16) uint16) {
	a := v.popV128Val().U16x8()
	var out [8]int16
	for i := range a {
		out[i] = int16(f(a[i]))
	}
	v.push(value.V128Val(value.V128FromI16x8(out)))
}
func (v *VM) binI16x8(f func(int16, int16) int16) {
	b := v.popV128Val().I16x8()
	a := v.popV128Val().I16x8()
	for i := range a {
		a[i] = f(a[i], b[i])
	}
	v.push(value.V128Val(value.V128FromI16x8(a)))
}
func (v *VM) binU16x8(f func(uint16, uint16) uint16) {
	b := v.popV128Val().U16x8()
	a := v.popV128Val().U16x8()
	var out [8]int16
	for i := range a {
		out[i] = int16(f(a[i], b[i]))
	}
	v.push(value.V128Val(value.V128FromI16x8(out)))
}

func (v *VM) mapI32x4(f func(int32) int32) {
	a := v.popV128Val().I32x4()
	for i := range a {
		a[i] = f(a[i])
	}
	v.push(value.V128Val(value.V128FromI32x4(a)))
}
func (v *VM) mapU32x4(f func(uint32) uint32) {
	a := v.popV128Val().U32x4()
	var out [4]int32
	for i := range a {
		out[i] = int32(f(a[i]))
	}
	v.push(value.V128Val(value.V128FromI32x4(out)))
}
func (v *VM) binI32x4(f func(int32, int32) int32) {
	b := v.popV128Val().I32x4()
	a := v.popV128Val().I32x4()
	for i := range a {
		a[i] = f(a[i], b[i])
	}
	v.push(value.V128Val(value.V128FromI32x4(a)))
}
func (v *VM) binU32x4(f func(uint32, uint32) uint32) {
	b := v.popV128Val().U32x4()
	a := v.popV128Val().U32x4()
	var out [4]int32
	for i := range a {
		out[i] = int32(f(a[i], b[i]))
	}
	v.push(value.V128Val(value.V128FromI32x4(out)))
}

func (v *VM) mapI64x2(f func(int64) int64) {
	a := v.popV128Val().I64x2()
	for i := range a {
		a[i] = f(a[i])
	}
	v.push(value.V128Val(value.V128FromI64x2(a)))
}
func (v *VM) mapU64x2(f func(uint64) uint64) {
	a := v.popV128Val().U64x2()
	var out [2]int64
	for i := range a {
		out[i] = int64(f(a[i]))
	}
	v.push(value.V128Val(value.V128FromI64x2(out)))
}
func (v *VM) binI64x2(f func(int64, int64) int64) {
	b := v.popV128Val().I64x2()
	a := v.popV128Val().I64x2()
	for i := range a {
		a[i] = f(a[i], b[i])
	}
	v.push(value.V128Val(value.V128FromI64x2(a)))
}

func (v *VM) mapF32x4(f func(float32) float32) {
	a := v.popV128Val().F32x4()
	for i := range a {
		a[i] = f(a[i])
	}
	v.push(value.V128Val(value.V128FromF32x4(a)))
}
func (v *VM) binF32x4(f func(float32, float32) float32) {
	b := v.popV128Val().F32x4()
	a := v.popV128Val().F32x4()
	for i := range a {
		a[i] = f(a[i], b[i])
	}
	v.push(value.V128Val(value.V128FromF32x4(a)))
}
func (v *VM) mapF64x2(f func(float64) float64) {
	a := v.popV128Val().F64x2()
	for i := range a {
		a[i] = f(a[i])
	}
	v.push(value.V128Val(value.V128FromF64x2(a)))
}
func (v *VM) binF64x2(f func(float64, float64) float64) {
	b := v.popV128Val().F64x2()
	a := v.popV128Val().F64x2()
	for i := range a {
		a[i] = f(a[i], b[i])
	}
	v.push(value.V128Val(value.V128FromF64x2(a)))
}

func (v *VM) mapI32x4ToF32x4(f func(int32) float32) {
	a := v.popV128Val().I32x4()
	var out [4]float32
	for i := range a {
		out[i] = f(a[i])
	}
	v.push(value.V128Val(value.V128FromF32x4(out)))
}
func (v *VM) mapU32x4ToF32x4(f func(uint32) float32) {
	a := v.popV128Val().U32x4()
	var out [4]float32
	for i := range a {
		out[i] = f(a[i])
	}
	v.push(value.V128Val(value.V128FromF32x4(out)))
}

// Comparisons pack the boolean result as an all-1s or all-0s lane.

func (v *VM) cmpI8x16(f func(int8, int8) bool) {
	b := v.popV128Val().I8x16()
	a := v.popV128Val().I8x16()
	var out [16]int8
	for i := range a {
		if f(a[i], b[i]) {
			out[i] = -1
		}
	}
	v.push(value.V128Val(value.V128FromI8x16(out)))
}
func (v *VM) cmpU8x16(f func(uint8, uint8) bool) {
	b := v.popV128Val().U8x16()
	a := v.popV128Val().U8x16()
	var out [16]int8
	for i := range a {
		if f(a[i], b[i]) {
			out[i] = -1
		}
	}
	v.push(value.V128Val(value.V128FromI8x16(out)))
}
func (v *VM) cmpI16x8(f func(int16, int16) bool) {
	b := v.popV128Val().I16x8()
	a := v.popV128Val().I16x8()
	var out [8]int16
	for i := range a {
		if f(a[i], b[i]) {
			out[i] = -1
		}
	}
	v.push(value.V128Val(value.V128FromI16x8(out)))
}
func (v *VM) cmpU16x8(f func(uint16, uint16) bool) {
	b := v.popV128Val().U16x8()
	a := v.popV128Val().U16x8()
	var out [8]int16
	for i := range a {
		if f(a[i], b[i]) {
			out[i] = -1
		}
	}
	v.push(value.V128Val(value.V128FromI16x8(out)))
}
func (v *VM) cmpI32x4(f func(int32, int32) bool) {
	b := v.popV128Val().I32x4()
	a := v.popV128Val().I32x4()
	var out [4]int32
	for i := range a {
		if f(a[i], b[i]) {
			out[i] = -1
		}
	}
	v.push(value.V128Val(value.V128FromI32x4(out)))
}
func (v *VM) cmpU32x4(f func(uint32, uint32) bool) {
	b := v.popV128Val().U32x4()
	a := v.popV128Val().U32x4()
	var out [4]int32
	for i := range a {
		if f(a[i], b[i]) {
			out[i] = -1
		}
	}
	v.push(value.V128Val(value.V128FromI32x4(out)))
}
func (v *VM) cmpI64x2(f func(int64, int64) bool) {
	b := v.popV128Val().I64x2()
	a := v.popV128Val().I64x2()
	var out [2]int64
	for i := range a {
		if f(a[i], b[i]) {
			out[i] = -1
		}
	}
	v.push(value.V128Val(value.V128FromI64x2(out)))
}
func (v *VM) cmpF32x4(f func(float32, float32) bool) {
	b := v.popV128Val().F32x4()
	a := v.popV128Val().F32x4()
	var out [4]int32
	for i := range a {
		if f(a[i], b[i]) {
			out[i] = -1
		}
	}
	v.push(value.V128Val(value.V128FromI32x4(out)))
}
func (v *VM) cmpF64x2(f func(float64, float64) bool) {
	b := v.popV128Val().F64x2()
	a := v.popV128Val().F64x2()
	var out [2]int64
	for i := range a {
		if f(a[i], b[i]) {
			out[i] = -1
		}
	}
	v.push(value.V128Val(value.V128FromI64x2(out)))
}

func (v *VM) allTrue8(a [16]uint8) {
	for _, x := range a {
		if x == 0 {
			v.pushBool(false)
			return
		}
	}
	v.pushBool(true)
}
func (v *VM) allTrue16(a [8]uint16) {
	for _, x := range a {
		if x == 0 {
			v.pushBool(false)
			return
		}
	}
	v.pushBool(true)
}
func (v *VM) allTrue32(a [4]uint32) {
	for _, x := range a {
		if x == 0 {
			v.pushBool(false)
			return
		}
	}
	v.pushBool(true)
}
func (v *VM) allTrue64(a [2]uint64) {
	for _, x := range a {
		if x == 0 {
			v.pushBool(false)
			return
		}
	}
	v.pushBool(true)
}

func (v *VM) bitmask8(a [16]int8) {
	var m int32
	for i, x := range a {
		if x < 0 {
			m |= 1 << i
		}
	}
	v.pushI32(m)
}
func (v *VM) bitmask16(a [8]int16) {
	var m int32
	for i, x := range a {
		if x < 0 {
			m |= 1 << i
		}
	}
	v.pushI32(m)
}
func (v *VM) bitmask32(a [4]int32) {
	var m int32
	for i, x := range a {
		if x < 0 {
			m |= 1 << i
		}
	}
	v.pushI32(m)
}
func (v *VM) bitmask64(a [2]int64) {
	var m int32
	for i, x := range a {
		if x < 0 {
			m |= 1 << i
		}
	}
	v.pushI32(m)
}

func (v *VM) narrow16To8(signed bool) {
	b := v.popV128Val().I16x8()
	a := v.popV128Val().I16x8()
	var out [16]int8
	narrow := func(x int16) int8 {
		if signed {
			if x > math.MaxInt8 {
				return math.MaxInt8
			}
			if x < math.MinInt8 {
				return math.MinInt8
			}
			return int8(x)
		}
		if x > math.MaxUint8 {
			return -1 // 0xFF as a signed byte
		}
		if x < 0 {
			return 0
		}
		return int8(uint8(x))
	}
	for i, x := range a {
		out[i] = narrow(x)
	}
	for i, x := range b {
		out[8+i] = narrow(x)
	}
	v.push(value.V128Val(value.V128FromI8x16(out)))
}

func (v *VM) narrow32To16(signed bool) {
	b := v.popV128Val().I32x4()
	a := v.popV128Val().I32x4()
	var out [8]int16
	narrow := func(x int32) int16 {
		if signed {
			if x > math.MaxInt16 {
				return math.MaxInt16
			}
			if x < math.MinInt16 {
				return math.MinInt16
			}
			return int16(x)
		}
		if x > math.MaxUint16 {
			return -1 // 0xFFFF as a signed halfword
		}
		if x < 0 {
			return 0
		}
		return int16(uint16(x))
	}
	for i, x := range a {
		out[i] = narrow(x)
	}
	for i, x := range b {
		out[4+i] = narrow(x)
	}
	v.push(value.V128Val(value.V128FromI16x8(out)))
}

func (v *VM) extendI8ToI16(low, signed bool) {
	a := v.popV128Val()
	var out [8]int16
	if signed {
		lanes := a.I8x16()
		for i := 0; i < 8; i++ {
			src := i
			if !low {
				src += 8
			}
			out[i] = int16(lanes[src])
		}
	} else {
		lanes := a.U8x16()
		for i := 0; i < 8; i++ {
			src := i
			if !low {
				src += 8
			}
			out[i] = int16(lanes[src])
		}
	}
	v.push(value.V128Val(value.V128FromI16x8(out)))
}

func (v *VM) extendI16ToI32(low, signed bool) {
	a := v.popV128Val()
	var out [4]int32
	if signed {
		lanes := a.I16x8()
		for i := 0; i < 4; i++ {
			src := i
			if !low {
				src += 4
			}
			out[i] = int32(lanes[src])
		}
	} else {
		lanes := a.U16x8()
		for i := 0; i < 4; i++ {
			src := i
			if !low {
				src += 4
			}
			out[i] = int32(lanes[src])
		}
	}
	v.push(value.V128Val(value.V128FromI32x4(out)))
}

func (v *VM) extendI32ToI64(low, signed bool) {
	a := v.popV128Val()
	var out [2]int64
	if signed {
		lanes := a.I32x4()
		for i := 0; i < 2; i++ {
			src := i
			if !low {
				src += 2
			}
			out[i] = int64(lanes[src])
		}
	} else {
		lanes := a.U32x4()
		for i := 0; i < 2; i++ {
			src := i
			if !low {
				src += 2
			}
			out[i] = int64(lanes[src])
		}
	}
	v.push(value.V128Val(value.V128FromI64x2(out)))
}

func (v *VM) extaddPairwise8To16(signed bool) {
	a := v.popV128Val()
	var out [8]int16
	if signed {
		lanes := a.I8x16()
		for i := 0; i < 8; i++ {
			out[i] = int16(lanes[2*i]) + int16(lanes[2*i+1])
		}
	} else {
		lanes := a.U8x16()
		for i := 0; i < 8; i++ {
			out[i] = int16(lanes[2*i]) + int16(lanes[2*i+1])
		}
	}
	v.push(value.V128Val(value.V128FromI16x8(out)))
}

func (v *VM) extaddPairwise16To32(signed bool) {
	a := v.popV128Val()
	var out [4]int32
	if signed {
		lanes := a.I16x8()
		for i := 0; i < 4; i++ {
			out[i] = int32(lanes[2*i]) + int32(lanes[2*i+1])
		}
	} else {
		lanes := a.U16x8()
		for i := 0; i < 4; i++ {
			out[i] = int32(lanes[2*i]) + int32(lanes[2*i+1])
		}
	}
	v.push(value.V128Val(value.V128FromI32x4(out)))
}

func (v *VM) extmul8To16(low, signed bool) {
	b := v.popV128Val()
	a := v.popV128Val()
	var out [8]int16
	if signed {
		la, lb := a.I8x16(), b.I8x16()
		for i := 0; i < 8; i++ {
			src := i
			if !low {
				src += 8
			}
			out[i] = int16(la[src]) * int16(lb[src])
		}
	} else {
		la, lb := a.U8x16(), b.U8x16()
		for i := 0; i < 8; i++ {
			src := i
			if !low {
				src += 8
			}
			out[i] = int16(uint16(la[src]) * uint16(lb[src]))
		}
	}
	v.push(value.V128Val(value.V128FromI16x8(out)))
}

func (v *VM) extmul16To32(low, signed bool) {
	b := v.popV128Val()
	a := v.popV128Val()
	var out [4]int32
	if signed {
		la, lb := a.I16x8(), b.I16x8()
		for i := 0; i < 4; i++ {
			src := i
			if !low {
				src += 4
			}
			out[i] = int32(la[src]) * int32(lb[src])
		}
	} else {
		la, lb := a.U16x8(), b.U16x8()
		for i := 0; i < 4; i++ {
			src := i
			if !low {
				src += 4
			}
			out[i] = int32(uint32(la[src]) * uint32(lb[src]))
		}
	}
	v.push(value.V128Val(value.V128FromI32x4(out)))
}

func (v *VM) extmul32To64(low, signed bool) {
	b := v.popV128Val()
	a := v.popV128Val()
	var out [2]int64
	if signed {
		la, lb := a.I32x4(), b.I32x4()
		for i := 0; i < 2; i++ {
			src := i
			if !low {
				src += 2
			}
			out[i] = int64(la[src]) * int64(lb[src])
		}
	} else {
		la, lb := a.U32x4(), b.U32x4()
		for i := 0; i < 2; i++ {
			src := i
			if !low {
				src += 2
			}
			out[i] = int64(uint64(la[src]) * uint64(lb[src]))
		}
	}
	v.push(value.V128Val(value.V128FromI64x2(out)))
}

func (v *VM) truncSatV128(from, to number.Type) {
	a := v.popV128Val().F32x4()
	var out [4]int32
	for i, f := range a {
		out[i] = int32(number.SatTruncate(from, to, uint64(math.Float32bits(f))))
	}
	v.push(value.V128Val(value.V128FromI32x4(out)))
}

func (v *VM) truncSatF64x2Zero(to number.Type) {
	a := v.popV128Val().F64x2()
	var out [4]int32
	for i, f := range a {
		out[i] = int32(number.SatTruncate(number.F64, to, math.Float64bits(f)))
	}
	v.push(value.V128Val(value.V128FromI32x4(out)))
}

func satAddS8(a, b int8) int8 {
	r := int16(a) + int16(b)
	if r > math.MaxInt8 {
		return math.MaxInt8
	}
	if r < math.MinInt8 {
		return math.MinInt8
	}
	return int8(r)
}
func satSubS8(a, b int8) int8 {
	r := int16(a) - int16(b)
	if r > math.MaxInt8 {
		return math.MaxInt8
	}
	if r < math.MinInt8 {
		return math.MinInt8
	}
	return int8(r)
}
func satAddU8(a, b uint8) uint8 {
	r := uint16(a) + uint16(b)
	if r > math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(r)
}
func satSubU8(a, b uint8) uint8 {
	if b > a {
		return 0
	}
	return a - b
}
func satAddS16(a, b int16) int16 {
	r := int32(a) + int32(b)
	if r > math.MaxInt16 {
		return math.MaxInt16
	}
	if r < math.MinInt16 {
		return math.MinInt16
	}
	return int16(r)
}
func satSubS16(a, b int16) int16 {
	r := int32(a) - int32(b)
	if r > math.MaxInt16 {
		return math.MaxInt16
	}
	if r < math.MinInt16 {
		return math.MinInt16
	}
	return int16(r)
}
func satAddU16(a, b uint16) uint16 {
	r := uint32(a) + uint32(b)
	if r > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(r)
}
func satSubU16(a, b uint16) uint16 {
	if b > a {
		return 0
	}
	return a - b
}
