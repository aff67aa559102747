package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

func constExpr(op opcode.Opcode, imm interface{}) wasm.Expr {
	return wasm.Expr{Instrs: []wasm.Instruction{{Op: op, Imm: imm}}}
}

func TestModuleAcceptsMinimalModule(t *testing.T) {
	m := &wasm.Module{}
	assert.NoError(t, Module(m))
}

func TestModuleRejectsTooManyMemories(t *testing.T) {
	m := &wasm.Module{Mems: []wasm.MemType{{}, {}}}
	assert.Equal(t, ErrTooManyMemories, Module(m))
}

func TestModuleRejectsOutOfRangeExportFunc(t *testing.T) {
	m := &wasm.Module{Exports: []wasm.Export{{Name: "f", Kind: wasm.ExportFunc, Idx: 0}}}
	assert.Equal(t, ErrFuncIdxOutOfRange, Module(m))
}

func TestModuleRejectsBadStartSignature(t *testing.T) {
	m := &wasm.Module{
		Types:     []wasm.FuncType{{Params: []wasm.ValueType{value.I32}}},
		FuncTypes: []uint32{0},
		Codes:     []wasm.Code{{}},
		HasStart:  true,
		StartIdx:  0,
	}
	assert.Equal(t, ErrStartFuncSignature, Module(m))
}

func TestModuleAcceptsConstGlobalInit(t *testing.T) {
	m := &wasm.Module{
		Globals: []wasm.Global{
			{Type: wasm.GlobalType{ValType: value.I32}, Init: constExpr(opcode.I32Const, wasm.I32Imm{Val: 1})},
		},
	}
	assert.NoError(t, Module(m))
}

func TestModuleRejectsNonConstGlobalInit(t *testing.T) {
	m := &wasm.Module{
		Globals: []wasm.Global{
			{Type: wasm.GlobalType{ValType: value.I32}, Init: wasm.Expr{Instrs: []wasm.Instruction{
				{Op: opcode.I32Const, Imm: wasm.I32Imm{Val: 1}},
				{Op: opcode.I32Const, Imm: wasm.I32Imm{Val: 2}},
			}}},
		},
	}
	assert.Equal(t, ErrGlobalInitNotConst, Module(m))
}

func TestModuleRejectsMemoryInitWithoutDataCount(t *testing.T) {
	m := &wasm.Module{
		Types:     []wasm.FuncType{{}},
		FuncTypes: []uint32{0},
		Codes: []wasm.Code{{Body: wasm.Expr{Instrs: []wasm.Instruction{
			{Op: opcode.Block, Imm: wasm.BlockImm{Type: wasm.BlockType{Kind: wasm.BlockEmpty}, Body: wasm.Expr{
				Instrs: []wasm.Instruction{{Op: opcode.PrefixFC, FC: opcode.MemoryInit}},
			}}},
		}}}},
	}
	assert.Equal(t, ErrDataCountRequired, Module(m))
}

func TestModuleAcceptsMemoryInitWithDataCount(t *testing.T) {
	m := &wasm.Module{
		Types:        []wasm.FuncType{{}},
		FuncTypes:    []uint32{0},
		HasDataCount: true,
		Codes: []wasm.Code{{Body: wasm.Expr{Instrs: []wasm.Instruction{
			{Op: opcode.PrefixFC, FC: opcode.MemoryInit},
		}}}},
	}
	assert.NoError(t, Module(m))
}

func TestModuleRejectsGlobalInitTypeMismatch(t *testing.T) {
	m := &wasm.Module{
		Globals: []wasm.Global{
			{Type: wasm.GlobalType{ValType: value.F32}, Init: constExpr(opcode.I32Const, wasm.I32Imm{Val: 1})},
		},
	}
	assert.Equal(t, ErrConstExprTypeMismatch, Module(m))
}

func TestModuleRejectsElementOffsetWrongType(t *testing.T) {
	m := &wasm.Module{
		Tables: []wasm.TableType{{ElemType: wasm.RefTypeFunc, Limits: wasm.Limits{Max: -1}}},
		Elements: []wasm.Element{
			{Mode: wasm.ElemActive, Offset: constExpr(opcode.F64Const, wasm.F64Imm{Val: 0})},
		},
	}
	assert.Equal(t, ErrConstExprTypeMismatch, Module(m))
}

func TestModuleRejectsMutableGlobalInConstExpr(t *testing.T) {
	m := &wasm.Module{
		Imports: []wasm.Import{
			{Module: "env", Name: "g", Kind: wasm.ImportGlobal, GlobalType: wasm.GlobalType{ValType: value.I32, Mutable: true}},
		},
		NumImportedGlobals: 1,
		Globals: []wasm.Global{
			{Type: wasm.GlobalType{ValType: value.I32}, Init: constExpr(opcode.GlobalGet, wasm.IdxImm{Idx: 0})},
		},
	}
	assert.Equal(t, ErrMutableGlobalInInit, Module(m))
}

func TestModuleAcceptsImmutableImportedGlobalInConstExpr(t *testing.T) {
	m := &wasm.Module{
		Imports: []wasm.Import{
			{Module: "env", Name: "g", Kind: wasm.ImportGlobal, GlobalType: wasm.GlobalType{ValType: value.I32, Mutable: false}},
		},
		NumImportedGlobals: 1,
		Globals: []wasm.Global{
			{Type: wasm.GlobalType{ValType: value.I32}, Init: constExpr(opcode.GlobalGet, wasm.IdxImm{Idx: 0})},
		},
	}
	assert.NoError(t, Module(m))
}

func TestModuleRejectsLimitsMaxBelowMin(t *testing.T) {
	m := &wasm.Module{Mems: []wasm.MemType{{Limits: wasm.Limits{Min: 4, Max: 2}}}}
	assert.Equal(t, ErrInvalidLimits, Module(m))
}

func TestModuleRejectsLimitsExceedingCeiling(t *testing.T) {
	m := &wasm.Module{Mems: []wasm.MemType{{Limits: wasm.Limits{Min: 1, Max: memPageCeiling + 1}}}}
	assert.Equal(t, ErrLimitsExceedCeiling, Module(m))
}

func TestModuleAcceptsUnboundedLimits(t *testing.T) {
	m := &wasm.Module{Mems: []wasm.MemType{{Limits: wasm.Limits{Min: 1, Max: -1}}}}
	assert.NoError(t, Module(m))
}

func TestModuleRejectsDuplicateExportName(t *testing.T) {
	m := &wasm.Module{
		Types:     []wasm.FuncType{{}},
		FuncTypes: []uint32{0, 0},
		Codes:     []wasm.Code{{}, {}},
		Exports: []wasm.Export{
			{Name: "f", Kind: wasm.ExportFunc, Idx: 0},
			{Name: "f", Kind: wasm.ExportFunc, Idx: 1},
		},
	}
	assert.Equal(t, ErrDuplicateExportName, Module(m))
}
