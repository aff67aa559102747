package vm

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertexvm/vertexvm/linker"
	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/wasm"
)

func memVM(t *testing.T, minPages, maxPages uint32) *VM {
	t.Helper()
	max := int64(-1)
	if maxPages > 0 {
		max = int64(maxPages)
	}
	m := &wasm.Module{
		Mems: []wasm.MemType{{Limits: wasm.Limits{Min: minPages, Max: max}}},
	}
	return mustVM(t, m)
}

func TestMemSize(t *testing.T) {
	v := memVM(t, 1, 0)
	assert.Equal(t, 1, v.MemSize())
}

func TestMemReadWriteRoundTrip(t *testing.T) {
	v := memVM(t, 1, 0)
	sample := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	offset := uint64(v.MemSize()*65536 - len(sample))

	n, err := v.MemWrite(sample, offset)
	require.NoError(t, err)
	assert.Equal(t, len(sample), n)

	readBuf := make([]byte, len(sample))
	n, err = v.MemRead(readBuf, offset)
	require.NoError(t, err)
	assert.Equal(t, len(sample), n)
	assert.Equal(t, sample, readBuf)
}

func TestMemReadShortBuffer(t *testing.T) {
	v := memVM(t, 1, 0)
	readBuf := make([]byte, 16)
	_, err := v.MemRead(readBuf, uint64(v.MemSize()*65536-8))
	assert.Equal(t, io.ErrShortBuffer, err)
}

func TestMemWriteShortWrite(t *testing.T) {
	v := memVM(t, 1, 0)
	data := make([]byte, 16)
	_, err := v.MemWrite(data, uint64(v.MemSize()*65536-8))
	assert.Equal(t, io.ErrShortWrite, err)
}

func TestMemGrowInstruction(t *testing.T) {
	m := &wasm.Module{
		Types:     []wasm.FuncType{{}},
		FuncTypes: []uint32{0},
		Mems:      []wasm.MemType{{Limits: wasm.Limits{Min: 1, Max: 4}}},
		Codes: []wasm.Code{{Body: wasm.Expr{Instrs: []wasm.Instruction{
			instr(opcode.I32Const, wasm.I32Imm{Val: 1}),
			noImm(opcode.MemoryGrow),
			noImm(opcode.Drop),
		}}}},
		Exports: []wasm.Export{{Name: "grow", Kind: wasm.ExportFunc, Idx: 0}},
	}
	v, err := NewFromModule("memgrow", m, linker.NewRegistry())
	require.NoError(t, err)
	fnIdx, _ := v.GetFunctionIndex("grow")
	_, err = v.Invoke(fnIdx)
	require.NoError(t, err)
	assert.Equal(t, 2, v.MemSize())
}
