package vm

import (
	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

// evalConstExpr evaluates a constant-expression initializer (used for
// globals, element-segment initializer expressions, and active element
// and data segment offsets).
// Validation already guarantees this is one of a handful of shapes.
func (v *VM) evalConstExpr(expr wasm.Expr) (value.Val, error) {
	instr := expr.Instrs[0]
	switch instr.Op {
	case opcode.I32Const:
		return value.I32Val(instr.Imm.(wasm.I32Imm).Val), nil
	case opcode.I64Const:
		return value.I64Val(instr.Imm.(wasm.I64Imm).Val), nil
	case opcode.F32Const:
		return value.F32Val(instr.Imm.(wasm.F32Imm).Val), nil
	case opcode.F64Const:
		return value.F64Val(instr.Imm.(wasm.F64Imm).Val), nil
	case opcode.RefNull:
		if instr.Imm.(wasm.RefNullImm).RefType == wasm.RefTypeExtern {
			return value.NullExternRef(), nil
		}
		return value.NullFuncRef(), nil
	case opcode.RefFunc:
		return value.FuncRefVal(instr.Imm.(wasm.IdxImm).Idx), nil
	case opcode.GlobalGet:
		idx := instr.Imm.(wasm.IdxImm).Idx
		return v.globals[idx].Value(), nil
	default:
		return value.Val{}, ErrInvalidBlockType
	}
}
