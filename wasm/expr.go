package wasm

import (
	"github.com/vertexvm/vertexvm/leb128"
	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/reader"
)

// readExpr decodes a sequence of instructions up to and including its
// terminating End (0x0B). Block and loop bodies, and each branch of an
// if, are themselves decoded by recursing into readExpr/readIfBranches,
// so nesting falls directly out of the recursive descent rather than
// needing an explicit index-fixup pass afterward.
func readExpr(r *reader.Reader) (Expr, error) {
	instrs, term, err := readInstructionsUntil(r)
	if err != nil {
		return Expr{}, err
	}
	if term != opcode.End {
		return Expr{}, decodeErr(r.Pos(), "else without matching if")
	}
	return Expr{Instrs: instrs}, nil
}

// readInstructionsUntil reads instructions until it consumes either an
// End or an Else opcode, returning which one stopped it. The End/Else
// instruction itself is consumed but not included in instrs: reaching
// the end of an Expr's Instrs slice during execution IS the terminator.
func readInstructionsUntil(r *reader.Reader) (instrs []Instruction, term opcode.Opcode, err error) {
	for {
		instr, op, err := readInstruction(r)
		if err != nil {
			return nil, 0, err
		}
		if op == opcode.End || op == opcode.Else {
			return instrs, op, nil
		}
		instrs = append(instrs, instr)
	}
}

// readIfBranches decodes the then/else bodies of an if instruction.
func readIfBranches(r *reader.Reader) (thenExpr, elseExpr Expr, err error) {
	instrs, term, err := readInstructionsUntil(r)
	if err != nil {
		return Expr{}, Expr{}, err
	}
	thenExpr = Expr{Instrs: instrs}
	if term == opcode.End {
		return thenExpr, Expr{}, nil
	}
	instrs2, term2, err := readInstructionsUntil(r)
	if err != nil {
		return Expr{}, Expr{}, err
	}
	if term2 != opcode.End {
		return Expr{}, Expr{}, decodeErr(r.Pos(), "malformed if/else block")
	}
	return thenExpr, Expr{Instrs: instrs2}, nil
}

func readBlockType(r *reader.Reader) (BlockType, error) {
	b, err := r.PeekByte()
	if err != nil {
		return BlockType{}, err
	}
	if b == 0x40 {
		r.ReadByte()
		return BlockType{Kind: BlockEmpty}, nil
	}
	if b == 0x7F || b == 0x7E || b == 0x7D || b == 0x7C || b == 0x7B || b == 0x70 || b == 0x6F {
		vt, err := readValueType(r)
		if err != nil {
			return BlockType{}, err
		}
		return BlockType{Kind: BlockValue, ValType: vt}, nil
	}
	idx, err := leb128.ReadInt32(r)
	if err != nil {
		return BlockType{}, err
	}
	if idx < 0 {
		return BlockType{}, decodeErr(r.Pos(), "invalid block type index")
	}
	return BlockType{Kind: BlockTypeIndex, TypeIdx: uint32(idx)}, nil
}

func readMemArg(r *reader.Reader) (MemArg, error) {
	align, err := leb128.ReadUint32(r)
	if err != nil {
		return MemArg{}, err
	}
	offset, err := leb128.ReadUint32(r)
	if err != nil {
		return MemArg{}, err
	}
	return MemArg{Align: align, Offset: offset}, nil
}

func readZeroByte(r *reader.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	if b != 0 {
		return decodeErr(r.Pos(), ErrReservedByteNonZero.Error())
	}
	return nil
}

// readInstruction decodes one instruction. The returned opcode.Opcode
// mirrors Instruction.Op except that it lets callers switch on it
// without a type assertion.
func readInstruction(r *reader.Reader) (Instruction, opcode.Opcode, error) {
	b, err := r.ReadByte()
	if err != nil {
		return Instruction{}, 0, wrapDecodeErr(r.Pos(), "reading opcode", err)
	}
	op := opcode.Opcode(b)

	switch op {
	case opcode.Block, opcode.Loop:
		bt, err := readBlockType(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		body, err := readExpr(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: BlockImm{Type: bt, Body: body}}, op, nil

	case opcode.If:
		bt, err := readBlockType(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		thenE, elseE, err := readIfBranches(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: IfImm{Type: bt, Then: thenE, Else: elseE}}, op, nil

	case opcode.Unreachable, opcode.Nop, opcode.Return,
		opcode.Drop, opcode.Select,
		opcode.I32Eqz, opcode.I32Eq, opcode.I32Ne, opcode.I32LtS, opcode.I32LtU,
		opcode.I32GtS, opcode.I32GtU, opcode.I32LeS, opcode.I32LeU, opcode.I32GeS, opcode.I32GeU,
		opcode.I64Eqz, opcode.I64Eq, opcode.I64Ne, opcode.I64LtS, opcode.I64LtU,
		opcode.I64GtS, opcode.I64GtU, opcode.I64LeS, opcode.I64LeU, opcode.I64GeS, opcode.I64GeU,
		opcode.F32Eq, opcode.F32Ne, opcode.F32Lt, opcode.F32Gt, opcode.F32Le, opcode.F32Ge,
		opcode.F64Eq, opcode.F64Ne, opcode.F64Lt, opcode.F64Gt, opcode.F64Le, opcode.F64Ge,
		opcode.I32Clz, opcode.I32Ctz, opcode.I32Popcnt, opcode.I32Add, opcode.I32Sub, opcode.I32Mul,
		opcode.I32DivS, opcode.I32DivU, opcode.I32RemS, opcode.I32RemU,
		opcode.I32And, opcode.I32Or, opcode.I32Xor, opcode.I32Shl, opcode.I32ShrS, opcode.I32ShrU,
		opcode.I32Rotl, opcode.I32Rotr,
		opcode.I64Clz, opcode.I64Ctz, opcode.I64Popcnt, opcode.I64Add, opcode.I64Sub, opcode.I64Mul,
		opcode.I64DivS, opcode.I64DivU, opcode.I64RemS, opcode.I64RemU,
		opcode.I64And, opcode.I64Or, opcode.I64Xor, opcode.I64Shl, opcode.I64ShrS, opcode.I64ShrU,
		opcode.I64Rotl, opcode.I64Rotr,
		opcode.F32Abs, opcode.F32Neg, opcode.F32Ceil, opcode.F32Floor, opcode.F32Trunc, opcode.F32Nearest,
		opcode.F32Sqrt, opcode.F32Add, opcode.F32Sub, opcode.F32Mul, opcode.F32Div, opcode.F32Min, opcode.F32Max, opcode.F32Copysign,
		opcode.F64Abs, opcode.F64Neg, opcode.F64Ceil, opcode.F64Floor, opcode.F64Trunc, opcode.F64Nearest,
		opcode.F64Sqrt, opcode.F64Add, opcode.F64Sub, opcode.F64Mul, opcode.F64Div, opcode.F64Min, opcode.F64Max, opcode.F64Copysign,
		opcode.I32WrapI64, opcode.I32TruncF32S, opcode.I32TruncF32U, opcode.I32TruncF64S, opcode.I32TruncF64U,
		opcode.I64ExtendI32S, opcode.I64ExtendI32U, opcode.I64TruncF32S, opcode.I64TruncF32U, opcode.I64TruncF64S, opcode.I64TruncF64U,
		opcode.F32ConvertI32S, opcode.F32ConvertI32U, opcode.F32ConvertI64S, opcode.F32ConvertI64U, opcode.F32DemoteF64,
		opcode.F64ConvertI32S, opcode.F64ConvertI32U, opcode.F64ConvertI64S, opcode.F64ConvertI64U, opcode.F64PromoteF32,
		opcode.I32ReinterpretF32, opcode.I64ReinterpretF64, opcode.F32ReinterpretI32, opcode.F64ReinterpretI64,
		opcode.I32Extend8S, opcode.I32Extend16S, opcode.I64Extend8S, opcode.I64Extend16S, opcode.I64Extend32S,
		opcode.RefIsNull:
		return Instruction{Op: op}, op, nil

	case opcode.Br, opcode.BrIf, opcode.Call, opcode.LocalGet, opcode.LocalSet, opcode.LocalTee,
		opcode.GlobalGet, opcode.GlobalSet, opcode.TableGet, opcode.TableSet, opcode.RefFunc:
		idx, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: IdxImm{Idx: idx}}, op, nil

	case opcode.BrTable:
		n, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		labels := make([]uint32, n)
		for i := range labels {
			if labels[i], err = leb128.ReadUint32(r); err != nil {
				return Instruction{}, 0, err
			}
		}
		def, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: BrTableImm{Labels: labels, Default: def}}, op, nil

	case opcode.CallIndirect:
		typeIdx, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		tableIdx, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: CallIndirectImm{TypeIdx: typeIdx, TableIdx: tableIdx}}, op, nil

	case opcode.SelectT:
		n, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		types := make([]ValueType, n)
		for i := range types {
			if types[i], err = readValueType(r); err != nil {
				return Instruction{}, 0, err
			}
		}
		return Instruction{Op: op, Imm: SelectTImm{Types: types}}, op, nil

	case opcode.I32Load, opcode.I64Load, opcode.F32Load, opcode.F64Load,
		opcode.I32Load8S, opcode.I32Load8U, opcode.I32Load16S, opcode.I32Load16U,
		opcode.I64Load8S, opcode.I64Load8U, opcode.I64Load16S, opcode.I64Load16U,
		opcode.I64Load32S, opcode.I64Load32U,
		opcode.I32Store, opcode.I64Store, opcode.F32Store, opcode.F64Store,
		opcode.I32Store8, opcode.I32Store16, opcode.I64Store8, opcode.I64Store16, opcode.I64Store32:
		arg, err := readMemArg(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: MemoryImm{Arg: arg}}, op, nil

	case opcode.MemorySize, opcode.MemoryGrow:
		if err := readZeroByte(r); err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op}, op, nil

	case opcode.I32Const:
		v, err := leb128.ReadInt32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: I32Imm{Val: v}}, op, nil

	case opcode.I64Const:
		v, err := leb128.ReadInt64(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: I64Imm{Val: v}}, op, nil

	case opcode.F32Const:
		v, err := r.ReadF32()
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: F32Imm{Val: v}}, op, nil

	case opcode.F64Const:
		v, err := r.ReadF64()
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: F64Imm{Val: v}}, op, nil

	case opcode.RefNull:
		rt, err := readRefType(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: op, Imm: RefNullImm{RefType: rt}}, op, nil

	case opcode.PrefixFC:
		return readFCInstruction(r)

	case opcode.PrefixFD:
		return readFDInstruction(r)

	default:
		return Instruction{}, 0, decodeErr(r.Pos(), ErrUnknownOpcode.Error())
	}
}

func readFCInstruction(r *reader.Reader) (Instruction, opcode.Opcode, error) {
	sub, err := leb128.ReadUint32(r)
	if err != nil {
		return Instruction{}, 0, err
	}
	fc := opcode.FC(sub)
	instr := Instruction{Op: opcode.PrefixFC, FC: fc}
	switch fc {
	case opcode.I32TruncSatF32S, opcode.I32TruncSatF32U, opcode.I32TruncSatF64S, opcode.I32TruncSatF64U,
		opcode.I64TruncSatF32S, opcode.I64TruncSatF32U, opcode.I64TruncSatF64S, opcode.I64TruncSatF64U:
		// no immediate
	case opcode.MemoryInit:
		dataIdx, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		if err := readZeroByte(r); err != nil {
			return Instruction{}, 0, err
		}
		instr.Imm = MemoryInitImm{DataIdx: dataIdx}
	case opcode.DataDrop:
		idx, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		instr.Imm = IdxImm{Idx: idx}
	case opcode.MemoryCopy:
		if err := readZeroByte(r); err != nil {
			return Instruction{}, 0, err
		}
		if err := readZeroByte(r); err != nil {
			return Instruction{}, 0, err
		}
		instr.Imm = MemoryCopyImm{}
	case opcode.MemoryFill:
		if err := readZeroByte(r); err != nil {
			return Instruction{}, 0, err
		}
	case opcode.TableInit:
		elemIdx, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		tableIdx, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		instr.Imm = TableInitImm{ElemIdx: elemIdx, TableIdx: tableIdx}
	case opcode.ElemDrop:
		idx, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		instr.Imm = IdxImm{Idx: idx}
	case opcode.TableCopy:
		dst, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		src, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		instr.Imm = TableCopyImm{DstTableIdx: dst, SrcTableIdx: src}
	case opcode.TableGrow, opcode.TableSize, opcode.TableFill:
		idx, err := leb128.ReadUint32(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		instr.Imm = IdxImm{Idx: idx}
	default:
		return Instruction{}, 0, decodeErr(r.Pos(), ErrUnknownOpcode.Error())
	}
	return instr, opcode.PrefixFC, nil
}

func readFDInstruction(r *reader.Reader) (Instruction, opcode.Opcode, error) {
	sub, err := leb128.ReadUint32(r)
	if err != nil {
		return Instruction{}, 0, err
	}
	fd := opcode.FD(sub)
	instr := Instruction{Op: opcode.PrefixFD, FD: fd}

	switch fd {
	case opcode.V128Const:
		bytes, err := r.ReadV128()
		if err != nil {
			return Instruction{}, 0, err
		}
		instr.Imm = V128ConstImm{Bytes: bytes}
		return instr, opcode.PrefixFD, nil
	case opcode.I8x16Shuffle:
		b, err := r.Read(16)
		if err != nil {
			return Instruction{}, 0, err
		}
		var lanes [16]uint8
		copy(lanes[:], b)
		instr.Imm = ShuffleImm{Lanes: lanes}
		return instr, opcode.PrefixFD, nil
	}

	if opcode.HasMemArg(fd) {
		arg, err := readMemArg(r)
		if err != nil {
			return Instruction{}, 0, err
		}
		imm := SIMDMemoryImm{Arg: arg}
		if opcode.HasLaneOperand(fd) {
			lane, err := r.ReadByte()
			if err != nil {
				return Instruction{}, 0, err
			}
			imm.Lane = lane
		}
		instr.Imm = imm
		return instr, opcode.PrefixFD, nil
	}

	if opcode.HasLaneOperand(fd) {
		lane, err := r.ReadByte()
		if err != nil {
			return Instruction{}, 0, err
		}
		instr.Imm = SIMDLaneImm{Lane: lane}
		return instr, opcode.PrefixFD, nil
	}

	// Every remaining SIMD opcode (comparisons, arithmetic, bitwise,
	// conversions) carries no immediate beyond the subcode itself.
	return instr, opcode.PrefixFD, nil
}
