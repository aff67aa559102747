package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertexvm/vertexvm/linker"
	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

// The test modules below are built as wasm.Module literals rather than
// compiled from .wat text: it keeps these tests self-contained and
// exercises the engine (NewFromModule onward) independently of the
// decoder, which has its own tests.

func i32(x int32) value.Val { return value.I32Val(x) }

func idx(i uint32) wasm.IdxImm { return wasm.IdxImm{Idx: i} }

func instr(op opcode.Opcode, imm interface{}) wasm.Instruction {
	return wasm.Instruction{Op: op, Imm: imm}
}

func noImm(op opcode.Opcode) wasm.Instruction { return wasm.Instruction{Op: op} }

func mustVM(t *testing.T, m *wasm.Module) *VM {
	t.Helper()
	v, err := NewFromModule("test", m, linker.NewRegistry())
	require.NoError(t, err)
	return v
}

func TestInvokeAdd(t *testing.T) {
	m := &wasm.Module{
		Types:     []wasm.FuncType{{Params: []wasm.ValueType{value.I32, value.I32}, Results: []wasm.ValueType{value.I32}}},
		FuncTypes: []uint32{0},
		Codes: []wasm.Code{{Body: wasm.Expr{Instrs: []wasm.Instruction{
			instr(opcode.LocalGet, idx(0)),
			instr(opcode.LocalGet, idx(1)),
			noImm(opcode.I32Add),
		}}}},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ExportFunc, Idx: 0}},
	}
	v := mustVM(t, m)
	fnIdx, err := v.GetFunctionIndex("add")
	require.NoError(t, err)
	results, err := v.Invoke(fnIdx, i32(3), i32(4))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int32(7), results[0].AsI32())
}

func TestInvokeLocalTee(t *testing.T) {
	// local 0 is the param, local 1 is a declared i32 local.
	// local.get 0; local.tee 1; drop; local.get 1
	m := &wasm.Module{
		Types:     []wasm.FuncType{{Params: []wasm.ValueType{value.I32}, Results: []wasm.ValueType{value.I32}}},
		FuncTypes: []uint32{0},
		Codes: []wasm.Code{{
			Locals: []wasm.LocalEntry{{Count: 1, Type: value.I32}},
			Body: wasm.Expr{Instrs: []wasm.Instruction{
				instr(opcode.LocalGet, idx(0)),
				instr(opcode.LocalTee, idx(1)),
				noImm(opcode.Drop),
				instr(opcode.LocalGet, idx(1)),
			}},
		}},
		Exports: []wasm.Export{{Name: "run", Kind: wasm.ExportFunc, Idx: 0}},
	}
	v := mustVM(t, m)
	fnIdx, _ := v.GetFunctionIndex("run")
	results, err := v.Invoke(fnIdx, i32(9))
	require.NoError(t, err)
	assert.Equal(t, int32(9), results[0].AsI32())
}

func TestInvokeLoopSum(t *testing.T) {
	// sum(n): acc=0 (local1), i=0 (local0 is n, local2 is i)
	// loop:
	//   i >= n -> br 1 (exit)
	//   acc += i; i += 1; br 0
	sum := wasm.Code{
		Locals: []wasm.LocalEntry{{Count: 2, Type: value.I32}}, // local1=acc, local2=i
		Body: wasm.Expr{Instrs: []wasm.Instruction{
			instr(opcode.Block, wasm.BlockImm{Type: wasm.BlockType{Kind: wasm.BlockEmpty}, Body: wasm.Expr{Instrs: []wasm.Instruction{
				instr(opcode.Loop, wasm.BlockImm{Type: wasm.BlockType{Kind: wasm.BlockEmpty}, Body: wasm.Expr{Instrs: []wasm.Instruction{
					instr(opcode.LocalGet, idx(2)),
					instr(opcode.LocalGet, idx(0)),
					noImm(opcode.I32LtS),
					noImm(opcode.I32Eqz),
					instr(opcode.BrIf, idx(1)),
					instr(opcode.LocalGet, idx(1)),
					instr(opcode.LocalGet, idx(2)),
					noImm(opcode.I32Add),
					instr(opcode.LocalSet, idx(1)),
					instr(opcode.LocalGet, idx(2)),
					instr(opcode.I32Const, wasm.I32Imm{Val: 1}),
					noImm(opcode.I32Add),
					instr(opcode.LocalSet, idx(2)),
					instr(opcode.Br, idx(0)),
				}}}),
			}}}),
			instr(opcode.LocalGet, idx(1)),
		}},
	}
	m := &wasm.Module{
		Types:     []wasm.FuncType{{Params: []wasm.ValueType{value.I32}, Results: []wasm.ValueType{value.I32}}},
		FuncTypes: []uint32{0},
		Codes:     []wasm.Code{sum},
		Exports:   []wasm.Export{{Name: "sum", Kind: wasm.ExportFunc, Idx: 0}},
	}
	v := mustVM(t, m)
	fnIdx, _ := v.GetFunctionIndex("sum")
	results, err := v.Invoke(fnIdx, i32(5)) // 0+1+2+3+4 = 10
	require.NoError(t, err)
	assert.Equal(t, int32(10), results[0].AsI32())
}

func TestInvokeUnreachableTraps(t *testing.T) {
	m := &wasm.Module{
		Types:     []wasm.FuncType{{}},
		FuncTypes: []uint32{0},
		Codes:     []wasm.Code{{Body: wasm.Expr{Instrs: []wasm.Instruction{noImm(opcode.Unreachable)}}}},
		Exports:   []wasm.Export{{Name: "boom", Kind: wasm.ExportFunc, Idx: 0}},
	}
	v := mustVM(t, m)
	fnIdx, _ := v.GetFunctionIndex("boom")
	_, err := v.Invoke(fnIdx)
	assert.Equal(t, ErrUnreachable, err)
}

func TestInvokeHostImport(t *testing.T) {
	host := linker.NewHostModule("env")
	host.AddFunc("double", wasm.FuncType{Params: []wasm.ValueType{value.I32}, Results: []wasm.ValueType{value.I32}},
		func(args []value.Val) ([]value.Val, error) {
			return []value.Val{value.I32Val(args[0].AsI32() * 2)}, nil
		})
	registry := linker.NewRegistry()
	registry.Register("env", host)

	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValueType{value.I32}, Results: []wasm.ValueType{value.I32}},
		},
		Imports:          []wasm.Import{{Module: "env", Name: "double", Kind: wasm.ImportFunc, TypeIdx: 0}},
		NumImportedFuncs: 1,
		FuncTypes:        []uint32{0},
		Codes: []wasm.Code{{Body: wasm.Expr{Instrs: []wasm.Instruction{
			instr(opcode.LocalGet, idx(0)),
			instr(opcode.Call, idx(0)),
		}}}},
		Exports: []wasm.Export{{Name: "run", Kind: wasm.ExportFunc, Idx: 1}},
	}
	v, err := NewFromModule("caller", m, registry)
	require.NoError(t, err)
	fnIdx, _ := v.GetFunctionIndex("run")
	results, err := v.Invoke(fnIdx, i32(21))
	require.NoError(t, err)
	assert.Equal(t, int32(42), results[0].AsI32())
}

func TestGetFunctionIndexMissing(t *testing.T) {
	m := &wasm.Module{Types: []wasm.FuncType{{}}, FuncTypes: []uint32{0}, Codes: []wasm.Code{{}}}
	v := mustVM(t, m)
	_, err := v.GetFunctionIndex("nope")
	assert.Error(t, err)
}
