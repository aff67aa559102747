package wasm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vertexvm/vertexvm/leb128"
	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/value"
)

// Encode re-serializes m to the WebAssembly binary format. It exists
// as a debug/round-trip aid, not a general-purpose producer: the
// bulk-memory and SIMD128 instruction families decode but do not
// re-encode (ErrUnsupportedEncode), since nothing in this repo needs
// to emit those bytes back out. The element, data-count and custom
// sections are not emitted.
func Encode(m *Module) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = append(buf, 0x00, 'a', 's', 'm')
	buf = append(buf, byte(Version), 0, 0, 0)

	buf = appendSection(buf, SecType, encodeTypeSection(m))
	buf = appendSection(buf, SecImport, encodeImportSection(m))
	buf = appendSection(buf, SecFunction, encodeFunctionSection(m))
	buf = appendSection(buf, SecTable, encodeTableSection(m))
	buf = appendSection(buf, SecMemory, encodeMemorySection(m))
	buf = appendSection(buf, SecGlobal, encodeGlobalSection(m))
	buf = appendSection(buf, SecExport, encodeExportSection(m))
	if m.HasStart {
		buf = appendSection(buf, SecStart, leb128.AppendUint32(nil, m.StartIdx))
	}
	code, err := encodeCodeSection(m)
	if err != nil {
		return nil, err
	}
	buf = appendSection(buf, SecCode, code)
	buf = appendSection(buf, SecData, encodeDataSection(m))
	return buf, nil
}

func appendSection(buf []byte, id SectionID, payload []byte) []byte {
	if len(payload) == 0 {
		return buf
	}
	buf = append(buf, byte(id))
	buf = leb128.AppendUint32(buf, uint32(len(payload)))
	return append(buf, payload...)
}

func encodeValType(b []byte, t ValueType) []byte {
	switch t {
	case value.I32:
		return append(b, 0x7F)
	case value.I64:
		return append(b, 0x7E)
	case value.F32:
		return append(b, 0x7D)
	case value.F64:
		return append(b, 0x7C)
	case value.V128:
		return append(b, 0x7B)
	case value.FuncRef:
		return append(b, 0x70)
	default: // value.ExternRef
		return append(b, 0x6F)
	}
}

func encodeFuncType(b []byte, ft FuncType) []byte {
	b = append(b, 0x60)
	b = leb128.AppendUint32(b, uint32(len(ft.Params)))
	for _, p := range ft.Params {
		b = encodeValType(b, p)
	}
	b = leb128.AppendUint32(b, uint32(len(ft.Results)))
	for _, r := range ft.Results {
		b = encodeValType(b, r)
	}
	return b
}

func encodeTypeSection(m *Module) []byte {
	if len(m.Types) == 0 {
		return nil
	}
	b := leb128.AppendUint32(nil, uint32(len(m.Types)))
	for _, ft := range m.Types {
		b = encodeFuncType(b, ft)
	}
	return b
}

func encodeLimits(b []byte, l Limits) []byte {
	if l.HasMax() {
		b = append(b, 0x01)
		b = leb128.AppendUint32(b, l.Min)
		b = leb128.AppendUint32(b, uint32(l.Max))
	} else {
		b = append(b, 0x00)
		b = leb128.AppendUint32(b, l.Min)
	}
	return b
}

func encodeImportSection(m *Module) []byte {
	if len(m.Imports) == 0 {
		return nil
	}
	b := leb128.AppendUint32(nil, uint32(len(m.Imports)))
	for _, imp := range m.Imports {
		b = encodeName(b, imp.Module)
		b = encodeName(b, imp.Name)
		b = append(b, byte(imp.Kind))
		switch imp.Kind {
		case ImportFunc:
			b = leb128.AppendUint32(b, imp.TypeIdx)
		case ImportTable:
			b = append(b, encodeRefType(imp.TableType.ElemType))
			b = encodeLimits(b, imp.TableType.Limits)
		case ImportMemory:
			b = encodeLimits(b, imp.MemType.Limits)
		case ImportGlobal:
			b = encodeValType(b, imp.GlobalType.ValType)
			b = append(b, boolByte(imp.GlobalType.Mutable))
		}
	}
	return b
}

func encodeFunctionSection(m *Module) []byte {
	if len(m.FuncTypes) == 0 {
		return nil
	}
	b := leb128.AppendUint32(nil, uint32(len(m.FuncTypes)))
	for _, idx := range m.FuncTypes {
		b = leb128.AppendUint32(b, idx)
	}
	return b
}

func encodeTableSection(m *Module) []byte {
	if len(m.Tables) == 0 {
		return nil
	}
	b := leb128.AppendUint32(nil, uint32(len(m.Tables)))
	for _, tt := range m.Tables {
		b = append(b, encodeRefType(tt.ElemType))
		b = encodeLimits(b, tt.Limits)
	}
	return b
}

func encodeMemorySection(m *Module) []byte {
	if len(m.Mems) == 0 {
		return nil
	}
	b := leb128.AppendUint32(nil, uint32(len(m.Mems)))
	for _, mt := range m.Mems {
		b = encodeLimits(b, mt.Limits)
	}
	return b
}

func encodeGlobalSection(m *Module) []byte {
	if len(m.Globals) == 0 {
		return nil
	}
	b := leb128.AppendUint32(nil, uint32(len(m.Globals)))
	for _, g := range m.Globals {
		b = encodeValType(b, g.Type.ValType)
		b = append(b, boolByte(g.Type.Mutable))
		b, _ = encodeExpr(b, g.Init)
	}
	return b
}

func encodeExportSection(m *Module) []byte {
	if len(m.Exports) == 0 {
		return nil
	}
	b := leb128.AppendUint32(nil, uint32(len(m.Exports)))
	for _, ex := range m.Exports {
		b = encodeName(b, ex.Name)
		b = append(b, byte(ex.Kind))
		b = leb128.AppendUint32(b, ex.Idx)
	}
	return b
}

func encodeDataSection(m *Module) []byte {
	if len(m.Datas) == 0 {
		return nil
	}
	b := leb128.AppendUint32(nil, uint32(len(m.Datas)))
	for _, d := range m.Datas {
		switch d.Mode {
		case DataActive:
			b = leb128.AppendUint32(b, 0)
			b, _ = encodeExpr(b, d.Offset)
		case DataPassive:
			b = append(b, 0x01)
		}
		b = leb128.AppendUint32(b, uint32(len(d.Init)))
		b = append(b, d.Init...)
	}
	return b
}

func encodeCodeSection(m *Module) ([]byte, error) {
	if len(m.Codes) == 0 {
		return nil, nil
	}
	b := leb128.AppendUint32(nil, uint32(len(m.Codes)))
	for _, c := range m.Codes {
		body, err := encodeCode(c)
		if err != nil {
			return nil, err
		}
		b = leb128.AppendUint32(b, uint32(len(body)))
		b = append(b, body...)
	}
	return b, nil
}

func encodeCode(c Code) ([]byte, error) {
	b := leb128.AppendUint32(nil, uint32(len(c.Locals)))
	for _, l := range c.Locals {
		b = leb128.AppendUint32(b, l.Count)
		b = encodeValType(b, l.Type)
	}
	return encodeExpr(b, c.Body)
}

func encodeName(b []byte, s string) []byte {
	b = leb128.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func encodeRefType(t RefType) byte {
	if t == RefTypeExtern {
		return 0x6F
	}
	return 0x70
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// ErrUnsupportedEncode is returned for instructions this encoder
// cannot re-serialize: the bulk-memory and SIMD128 opcode families.
var ErrUnsupportedEncode = fmt.Errorf("wasm: encoding this instruction is not supported")

func encodeExpr(b []byte, e Expr) ([]byte, error) {
	var err error
	for _, instr := range e.Instrs {
		b, err = encodeInstr(b, instr)
		if err != nil {
			return nil, err
		}
	}
	return append(b, byte(opcode.End)), nil
}

func encodeBlockType(b []byte, bt BlockType) []byte {
	switch bt.Kind {
	case BlockEmpty:
		return append(b, 0x40)
	case BlockValue:
		return encodeValType(b, bt.ValType)
	default:
		return leb128.AppendInt32(b, int32(bt.TypeIdx))
	}
}

func encodeMemArg(b []byte, a MemArg) []byte {
	b = leb128.AppendUint32(b, a.Align)
	return leb128.AppendUint32(b, a.Offset)
}

func encodeInstr(b []byte, instr Instruction) ([]byte, error) {
	op := instr.Op
	b = append(b, byte(op))
	switch op {
	case opcode.PrefixFC, opcode.PrefixFD:
		return nil, ErrUnsupportedEncode
	case opcode.Block, opcode.Loop:
		imm := instr.Imm.(BlockImm)
		b = encodeBlockType(b, imm.Type)
		return encodeExpr(b, imm.Body)
	case opcode.If:
		imm := instr.Imm.(IfImm)
		b = encodeBlockType(b, imm.Type)
		var err error
		for _, i := range imm.Then.Instrs {
			if b, err = encodeInstr(b, i); err != nil {
				return nil, err
			}
		}
		if len(imm.Else.Instrs) > 0 {
			b = append(b, byte(opcode.Else))
			for _, i := range imm.Else.Instrs {
				if b, err = encodeInstr(b, i); err != nil {
					return nil, err
				}
			}
		}
		return append(b, byte(opcode.End)), nil
	case opcode.Br, opcode.BrIf, opcode.Call, opcode.LocalGet, opcode.LocalSet, opcode.LocalTee,
		opcode.GlobalGet, opcode.GlobalSet, opcode.TableGet, opcode.TableSet:
		return leb128.AppendUint32(b, instr.Imm.(IdxImm).Idx), nil
	case opcode.SelectT:
		imm := instr.Imm.(SelectTImm)
		b = leb128.AppendUint32(b, uint32(len(imm.Types)))
		for _, t := range imm.Types {
			b = encodeValType(b, t)
		}
		return b, nil
	case opcode.BrTable:
		imm := instr.Imm.(BrTableImm)
		b = leb128.AppendUint32(b, uint32(len(imm.Labels)))
		for _, l := range imm.Labels {
			b = leb128.AppendUint32(b, l)
		}
		return leb128.AppendUint32(b, imm.Default), nil
	case opcode.CallIndirect:
		imm := instr.Imm.(CallIndirectImm)
		b = leb128.AppendUint32(b, imm.TypeIdx)
		return leb128.AppendUint32(b, imm.TableIdx), nil
	case opcode.MemorySize, opcode.MemoryGrow:
		return append(b, 0x00), nil
	case opcode.I32Const:
		return leb128.AppendInt32(b, instr.Imm.(I32Imm).Val), nil
	case opcode.I64Const:
		return leb128.AppendInt64(b, instr.Imm.(I64Imm).Val), nil
	case opcode.F32Const:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(instr.Imm.(F32Imm).Val))
		return append(b, tmp[:]...), nil
	case opcode.F64Const:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(instr.Imm.(F64Imm).Val))
		return append(b, tmp[:]...), nil
	case opcode.RefNull:
		return append(b, encodeRefType(instr.Imm.(RefNullImm).RefType)), nil
	case opcode.RefFunc:
		return leb128.AppendUint32(b, instr.Imm.(IdxImm).Idx), nil
	default:
		if mi, ok := instr.Imm.(MemoryImm); ok {
			return encodeMemArg(b, mi.Arg), nil
		}
		// No-immediate instruction: the opcode byte already appended is
		// the whole encoding (numeric ops, drop/select/return/unreachable/
		// nop/else/end and similar).
		return b, nil
	}
}
