package vm

import (
	"math"

	"github.com/vertexvm/vertexvm/number"
	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/wasm"
)

// dispatchFC handles the 0xFC-prefixed family: the non-trapping
// trunc_sat conversions, and the bulk-memory/table operations.
func (v *VM) dispatchFC(instr wasm.Instruction) {
	switch instr.FC {
	case opcode.I32TruncSatF32S:
		v.pushI32(int32(number.SatTruncate(number.F32, number.I32, uint64(math.Float32bits(v.popF32())))))
	case opcode.I32TruncSatF32U:
		v.pushU32(uint32(number.SatTruncate(number.F32, number.U32, uint64(math.Float32bits(v.popF32())))))
	case opcode.I32TruncSatF64S:
		v.pushI32(int32(number.SatTruncate(number.F64, number.I32, math.Float64bits(v.popF64()))))
	case opcode.I32TruncSatF64U:
		v.pushU32(uint32(number.SatTruncate(number.F64, number.U32, math.Float64bits(v.popF64()))))
	case opcode.I64TruncSatF32S:
		v.pushI64(int64(number.SatTruncate(number.F32, number.I64, uint64(math.Float32bits(v.popF32())))))
	case opcode.I64TruncSatF32U:
		v.pushU64(number.SatTruncate(number.F32, number.U64, uint64(math.Float32bits(v.popF32()))))
	case opcode.I64TruncSatF64S:
		v.pushI64(int64(number.SatTruncate(number.F64, number.I64, math.Float64bits(v.popF64()))))
	case opcode.I64TruncSatF64U:
		v.pushU64(number.SatTruncate(number.F64, number.U64, math.Float64bits(v.popF64())))

	case opcode.MemoryInit:
		imm := instr.Imm.(wasm.MemoryInitImm)
		n := v.popU32()
		src := v.popU32()
		dst := v.popU32()
		data := v.datas[imm.DataIdx]
		// A dropped segment is treated as empty rather than an outright
		// trap condition; Drop already nils data.Bytes, so a zero-length
		// init against a dropped segment still succeeds while any nonzero
		// n trips the bounds check below.
		if uint64(src)+uint64(n) > uint64(len(data.Bytes)) {
			panic(ErrOutOfBoundMemoryAccess)
		}
		if _, err := v.mems[imm.MemIdx].Write(data.Bytes[src:src+n], uint64(dst)); err != nil {
			panic(ErrOutOfBoundMemoryAccess)
		}
	case opcode.DataDrop:
		idx := instr.Imm.(wasm.IdxImm).Idx
		v.datas[idx].Drop()
	case opcode.MemoryCopy:
		imm := instr.Imm.(wasm.MemoryCopyImm)
		n := v.popU32()
		src := v.popU32()
		dst := v.popU32()
		dstMem := v.mems[imm.DstMemIdx]
		srcMem := v.mems[imm.SrcMemIdx]
		if imm.DstMemIdx == imm.SrcMemIdx {
			if !dstMem.CopyWithin(uint64(dst), uint64(src), uint64(n)) {
				panic(ErrOutOfBoundMemoryAccess)
			}
		} else {
			buf := make([]byte, n)
			if _, err := srcMem.Read(buf, uint64(src)); err != nil {
				panic(ErrOutOfBoundMemoryAccess)
			}
			if _, err := dstMem.Write(buf, uint64(dst)); err != nil {
				panic(ErrOutOfBoundMemoryAccess)
			}
		}
	case opcode.MemoryFill:
		n := v.popU32()
		val := v.popU32()
		dst := v.popU32()
		if !v.mems[0].Fill(uint64(dst), byte(val), uint64(n)) {
			panic(ErrOutOfBoundMemoryAccess)
		}

	case opcode.TableInit:
		imm := instr.Imm.(wasm.TableInitImm)
		n := v.popU32()
		src := v.popU32()
		dst := v.popU32()
		elem := v.elements[imm.ElemIdx]
		// Dropped likewise reads as an already-empty segment; InitFrom's
		// own bounds check rejects any nonzero src/n against it.
		if !v.tables[imm.TableIdx].InitFrom(elem, dst, src, n) {
			panic(ErrOutOfBoundTableAccess)
		}
	case opcode.ElemDrop:
		idx := instr.Imm.(wasm.IdxImm).Idx
		v.elements[idx].Drop()
	case opcode.TableCopy:
		imm := instr.Imm.(wasm.TableCopyImm)
		n := v.popU32()
		src := v.popU32()
		dst := v.popU32()
		dstTable := v.tables[imm.DstTableIdx]
		if imm.DstTableIdx == imm.SrcTableIdx {
			if !dstTable.CopyWithin(dst, src, n) {
				panic(ErrOutOfBoundTableAccess)
			}
		} else if !dstTable.CopyFrom(v.tables[imm.SrcTableIdx], dst, src, n) {
			panic(ErrOutOfBoundTableAccess)
		}
	case opcode.TableGrow:
		idx := instr.Imm.(wasm.IdxImm).Idx
		n := v.popU32()
		fill := v.pop()
		v.pushI32(int32(v.tables[idx].Grow(n, fill)))
	case opcode.TableSize:
		idx := instr.Imm.(wasm.IdxImm).Idx
		v.pushU32(v.tables[idx].Size())
	case opcode.TableFill:
		idx := instr.Imm.(wasm.IdxImm).Idx
		n := v.popU32()
		val := v.pop()
		dst := v.popU32()
		if !v.tables[idx].Fill(dst, n, val) {
			panic(ErrOutOfBoundTableAccess)
		}

	default:
		panic(ErrUnknownOpcode)
	}
}
