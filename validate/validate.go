// Package validate performs post-decode structural checks on a module
// before instantiation: index bounds, constant-expression shape, and
// the few invariants the binary format itself cannot enforce.
package validate

import (
	"errors"
	"fmt"

	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

// Error is a validation failure carrying a free-form reason. Module
// itself returns the package-level errors.New vars below, which
// callers compare against with errors.Is, matching the flat
// error-table idiom the rest of this module uses for non-trap,
// non-decode failures.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "validate: " + e.Reason }

var (
	ErrTypeIdxOutOfRange     = errors.New("validate: type index out of range")
	ErrFuncIdxOutOfRange     = errors.New("validate: function index out of range")
	ErrTableIdxOutOfRange    = errors.New("validate: table index out of range")
	ErrMemIdxOutOfRange      = errors.New("validate: memory index out of range")
	ErrGlobalIdxOutOfRange   = errors.New("validate: global index out of range")
	ErrDataIdxOutOfRange     = errors.New("validate: data index out of range")
	ErrElemIdxOutOfRange     = errors.New("validate: element index out of range")
	ErrTooManyMemories       = errors.New("validate: at most one memory is allowed")
	ErrStartFuncSignature    = errors.New("validate: start function must take no params and return no results")
	ErrGlobalInitNotConst    = errors.New("validate: global initializer is not a constant expression")
	ErrMutableGlobalInInit   = errors.New("validate: constant expression references a mutable global")
	ErrDataCountRequired     = errors.New("validate: memory.init/data.drop require a data count section")
	ErrConstExprTypeMismatch = errors.New("validate: constant expression type does not match the expected type")
	ErrInvalidLimits         = errors.New("validate: limits maximum is less than minimum")
	ErrLimitsExceedCeiling   = errors.New("validate: limits maximum exceeds the implementation ceiling")
	ErrDuplicateExportName   = errors.New("validate: duplicate export name")
)

// memPageCeiling and tableElemCeiling bound a limits maximum even when
// the module declares no memory/table maximum of its own, mirroring
// instance.MaxPages/instance.MaxTableSize (kept as separate constants
// here so validate has no import-time dependency on instance's runtime
// allocation package for a purely structural check).
const (
	memPageCeiling   = 65536
	tableElemCeiling = 65536
)

// Module validates m, returning the first violation found.
func Module(m *wasm.Module) error {
	if len(m.Mems)+m.NumImportedMems > 1 {
		return ErrTooManyMemories
	}
	for _, imp := range m.Imports {
		if imp.Kind == wasm.ImportFunc && int(imp.TypeIdx) >= len(m.Types) {
			return ErrTypeIdxOutOfRange
		}
		if imp.Kind == wasm.ImportTable {
			if err := validateLimits(imp.TableType.Limits, tableElemCeiling); err != nil {
				return err
			}
		}
		if imp.Kind == wasm.ImportMemory {
			if err := validateLimits(imp.MemType.Limits, memPageCeiling); err != nil {
				return err
			}
		}
	}
	for _, idx := range m.FuncTypes {
		if int(idx) >= len(m.Types) {
			return ErrTypeIdxOutOfRange
		}
	}
	for _, tt := range m.Tables {
		if err := validateLimits(tt.Limits, tableElemCeiling); err != nil {
			return err
		}
	}
	for _, mt := range m.Mems {
		if err := validateLimits(mt.Limits, memPageCeiling); err != nil {
			return err
		}
	}
	for _, g := range m.Globals {
		if err := validateConstExpr(m, g.Init, g.Type.ValType); err != nil {
			return err
		}
	}
	for _, el := range m.Elements {
		if el.Mode == wasm.ElemActive {
			if int(el.TableIdx) >= len(m.Tables)+m.NumImportedTables {
				return ErrTableIdxOutOfRange
			}
			if err := validateConstExpr(m, el.Offset, value.I32); err != nil {
				return err
			}
		}
		for _, idx := range el.Funcs {
			if int(idx) >= m.FuncCount() {
				return ErrFuncIdxOutOfRange
			}
		}
	}
	for _, d := range m.Datas {
		if d.Mode == wasm.DataActive {
			if int(d.MemIdx) >= len(m.Mems)+m.NumImportedMems {
				return ErrMemIdxOutOfRange
			}
			if err := validateConstExpr(m, d.Offset, value.I32); err != nil {
				return err
			}
		}
	}
	seenExportNames := make(map[string]bool, len(m.Exports))
	for _, ex := range m.Exports {
		if seenExportNames[ex.Name] {
			return ErrDuplicateExportName
		}
		seenExportNames[ex.Name] = true
		switch ex.Kind {
		case wasm.ExportFunc:
			if int(ex.Idx) >= m.FuncCount() {
				return ErrFuncIdxOutOfRange
			}
		case wasm.ExportTable:
			if int(ex.Idx) >= len(m.Tables)+m.NumImportedTables {
				return ErrTableIdxOutOfRange
			}
		case wasm.ExportMemory:
			if int(ex.Idx) >= len(m.Mems)+m.NumImportedMems {
				return ErrMemIdxOutOfRange
			}
		case wasm.ExportGlobal:
			if int(ex.Idx) >= len(m.Globals)+m.NumImportedGlobals {
				return ErrGlobalIdxOutOfRange
			}
		}
	}
	if m.HasStart {
		typeIdx, ok := m.FuncTypeIndex(m.StartIdx)
		if !ok {
			return ErrFuncIdxOutOfRange
		}
		ft := m.Types[typeIdx]
		if len(ft.Params) != 0 || len(ft.Results) != 0 {
			return ErrStartFuncSignature
		}
	}
	if err := validateBodies(m); err != nil {
		return err
	}
	return nil
}

// validateLimits checks that a table's or memory's declared limits are
// internally consistent (max >= min when a max is declared) and that
// any declared max doesn't exceed the implementation's ceiling.
func validateLimits(l wasm.Limits, ceiling int64) error {
	if l.HasMax() {
		if l.Max < int64(l.Min) {
			return ErrInvalidLimits
		}
		if l.Max > ceiling {
			return ErrLimitsExceedCeiling
		}
	}
	return nil
}

// validateConstExpr checks that expr is a single constant instruction
// (const / global.get / ref.null / ref.func), per the constant-expression
// grammar used for global and segment initializers, and that it produces
// a value of the expected type (the global's declared type, or i32 for
// an element/data segment's offset). The terminating End is consumed by
// the decoder and never appears in Instrs.
func validateConstExpr(m *wasm.Module, expr wasm.Expr, expected wasm.ValueType) error {
	if len(expr.Instrs) != 1 {
		return ErrGlobalInitNotConst
	}
	instr := expr.Instrs[0]
	switch instr.Op {
	case opcode.I32Const:
		if expected != value.I32 {
			return ErrConstExprTypeMismatch
		}
	case opcode.I64Const:
		if expected != value.I64 {
			return ErrConstExprTypeMismatch
		}
	case opcode.F32Const:
		if expected != value.F32 {
			return ErrConstExprTypeMismatch
		}
	case opcode.F64Const:
		if expected != value.F64 {
			return ErrConstExprTypeMismatch
		}
	case opcode.RefNull:
		rt := instr.Imm.(wasm.RefNullImm).RefType
		got := value.FuncRef
		if rt == wasm.RefTypeExtern {
			got = value.ExternRef
		}
		if expected != got {
			return ErrConstExprTypeMismatch
		}
	case opcode.RefFunc:
		if expected != value.FuncRef {
			return ErrConstExprTypeMismatch
		}
		idx := instr.Imm.(wasm.IdxImm).Idx
		if int(idx) >= m.FuncCount() {
			return ErrFuncIdxOutOfRange
		}
	case opcode.GlobalGet:
		idx := instr.Imm.(wasm.IdxImm).Idx
		if int(idx) >= m.NumImportedGlobals {
			// Only imported globals may be referenced, and only if const.
			return ErrGlobalInitNotConst
		}
		gt, ok := m.ImportedGlobalType(idx)
		if !ok {
			return ErrGlobalIdxOutOfRange
		}
		if gt.Mutable {
			return ErrMutableGlobalInInit
		}
		if gt.ValType != expected {
			return ErrConstExprTypeMismatch
		}
	default:
		return ErrGlobalInitNotConst
	}
	return nil
}

// validateBodies checks each function body's memory.init/data.drop use
// against the presence of a data-count section, the one property the
// decoder itself cannot enforce without module-wide context. Block/Loop/If
// bodies nest as their own Expr, so the check walks the instruction tree
// recursively rather than scanning a single flat slice.
func validateBodies(m *wasm.Module) error {
	needsDataCount := false
	var walk func(wasm.Expr)
	walk = func(e wasm.Expr) {
		for _, instr := range e.Instrs {
			switch instr.Op {
			case opcode.PrefixFC:
				switch instr.FC {
				case opcode.MemoryInit, opcode.DataDrop:
					needsDataCount = true
				}
			case opcode.Block, opcode.Loop:
				walk(instr.Imm.(wasm.BlockImm).Body)
			case opcode.If:
				imm := instr.Imm.(wasm.IfImm)
				walk(imm.Then)
				walk(imm.Else)
			}
		}
	}
	for _, c := range m.Codes {
		walk(c.Body)
	}
	if needsDataCount && !m.HasDataCount {
		return ErrDataCountRequired
	}
	return nil
}

// Wrap annotates err with additional context, matching the sentinel
// style of returning the package-level vars unwrapped in the common
// case and only wrapping when a caller-supplied detail adds value.
func Wrap(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
