package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/value"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := &Module{
		Types: []FuncType{
			{Params: []ValueType{value.I32, value.I32}, Results: []ValueType{value.I32}},
		},
		FuncTypes: []uint32{0},
		Mems:      []MemType{{Limits: Limits{Min: 1, Max: 2}}},
		Globals: []Global{
			{Type: GlobalType{ValType: value.I32, Mutable: true}, Init: Expr{Instrs: []Instruction{
				{Op: opcode.I32Const, Imm: I32Imm{Val: 7}},
			}}},
		},
		Codes: []Code{{
			Locals: []LocalEntry{{Count: 1, Type: value.I32}},
			Body: Expr{Instrs: []Instruction{
				{Op: opcode.Block, Imm: BlockImm{Type: BlockType{Kind: BlockEmpty}, Body: Expr{Instrs: []Instruction{
					{Op: opcode.LocalGet, Imm: IdxImm{Idx: 0}},
					{Op: opcode.LocalGet, Imm: IdxImm{Idx: 1}},
					{Op: opcode.I32Add},
					{Op: opcode.LocalSet, Imm: IdxImm{Idx: 2}},
					{Op: opcode.LocalGet, Imm: IdxImm{Idx: 2}},
					{Op: opcode.BrIf, Imm: IdxImm{Idx: 0}},
				}}}},
				{Op: opcode.LocalGet, Imm: IdxImm{Idx: 2}},
			}},
		}},
		Exports: []Export{{Name: "add", Kind: ExportFunc, Idx: 0}},
	}

	encoded, err := Encode(m)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, m.Types, decoded.Types)
	assert.Equal(t, m.FuncTypes, decoded.FuncTypes)
	assert.Equal(t, m.Mems, decoded.Mems)
	assert.Equal(t, m.Exports, decoded.Exports)
	require.Len(t, decoded.Codes, 1)
	assert.Equal(t, m.Codes[0].Locals, decoded.Codes[0].Locals)
	assert.Equal(t, m.Codes[0].Body, decoded.Codes[0].Body)
	require.Len(t, decoded.Globals, 1)
	assert.Equal(t, m.Globals[0].Init, decoded.Globals[0].Init)
}

func TestEncodeRejectsSIMD(t *testing.T) {
	m := &Module{
		Types:     []FuncType{{}},
		FuncTypes: []uint32{0},
		Codes: []Code{{Body: Expr{Instrs: []Instruction{
			{Op: opcode.PrefixFD, FD: opcode.V128Const, Imm: V128ConstImm{}},
		}}}},
	}
	_, err := Encode(m)
	assert.Equal(t, ErrUnsupportedEncode, err)
}
