package wasm

import (
	"github.com/vertexvm/vertexvm/opcode"
)

// Instruction is a single decoded instruction: its opcode byte (and,
// for the 0xFC/0xFD families, its subcode) plus a typed immediate.
type Instruction struct {
	Op    opcode.Opcode
	FC    opcode.FC // meaningful when Op == PrefixFC
	FD    opcode.FD // meaningful when Op == PrefixFD
	Imm   interface{}
}

// BlockImm is the immediate for block/loop: the block's signature and
// its body, decoded recursively so nesting needs no index fixup.
type BlockImm struct {
	Type BlockType
	Body Expr
}

// IfImm is the immediate for if: its signature, its then-body, and its
// (possibly empty) else-body.
type IfImm struct {
	Type BlockType
	Then Expr
	Else Expr
}

// BrTableImm is the immediate for br_table.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallIndirectImm is the immediate for call_indirect.
type CallIndirectImm struct {
	TypeIdx  uint32
	TableIdx uint32
}

// MemoryImm is the immediate for a scalar load/store instruction.
type MemoryImm struct {
	Arg MemArg
}

// SIMDMemoryImm is the immediate for a SIMD load/store instruction,
// optionally carrying a trailing lane index for the *_lane variants.
type SIMDMemoryImm struct {
	Arg  MemArg
	Lane uint8 // meaningful when opcode.HasLaneOperand(FD) is true
}

// SIMDLaneImm is the immediate for extract_lane/replace_lane.
type SIMDLaneImm struct {
	Lane uint8
}

// V128ConstImm is the immediate for v128.const.
type V128ConstImm struct {
	Bytes [16]byte
}

// ShuffleImm is the immediate for i8x16.shuffle.
type ShuffleImm struct {
	Lanes [16]uint8
}

// MemoryInitImm is the immediate for memory.init.
type MemoryInitImm struct {
	DataIdx uint32
	MemIdx  uint32
}

// TableInitImm is the immediate for table.init.
type TableInitImm struct {
	ElemIdx  uint32
	TableIdx uint32
}

// TableCopyImm is the immediate for table.copy.
type TableCopyImm struct {
	DstTableIdx uint32
	SrcTableIdx uint32
}

// MemoryCopyImm is the immediate for memory.copy.
type MemoryCopyImm struct {
	DstMemIdx uint32
	SrcMemIdx uint32
}

// IdxImm is a plain single-index immediate (local/global/func/table/
// elem/data index, depending on the opcode it's attached to).
type IdxImm struct {
	Idx uint32
}

// I32Imm, I64Imm, F32Imm, F64Imm carry constant-instruction immediates.
type (
	I32Imm struct{ Val int32 }
	I64Imm struct{ Val int64 }
	F32Imm struct{ Val float32 }
	F64Imm struct{ Val float64 }
)

// RefNullImm is the immediate for ref.null.
type RefNullImm struct {
	RefType RefType
}

// SelectTImm is the immediate for the typed select instruction.
type SelectTImm struct {
	Types []ValueType
}
