// Package wasm decodes the WebAssembly binary module format into an
// in-memory representation suitable for validation and execution.
package wasm

import "github.com/vertexvm/vertexvm/value"

// Magic and Version are the fixed 8-byte module preamble.
const (
	Magic   = 0x6d736100 // "\0asm"
	Version = 0x01
)

// SectionID identifies one of the twelve canonical module sections.
type SectionID byte

const (
	SecCustom SectionID = iota
	SecType
	SecImport
	SecFunction
	SecTable
	SecMemory
	SecGlobal
	SecExport
	SecStart
	SecElement
	SecCode
	SecData
	SecDataCount
)

// ValueType mirrors value.Type for the subset of types that may appear
// in a function signature, local declaration, or global type.
type ValueType = value.Type

// RefType distinguishes the two reference types usable in table and
// element-segment declarations.
type RefType byte

const (
	RefTypeFunc RefType = iota
	RefTypeExtern
)

// FuncType is a function signature: ordered parameter and result types.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// Limits bounds a table's or memory's size, in elements or pages
// respectively. Max is -1 when unbounded.
type Limits struct {
	Min uint32
	Max int64 // -1 means unbounded
}

// HasMax reports whether the limits carry an explicit upper bound.
func (l Limits) HasMax() bool { return l.Max >= 0 }

// TableType describes one table: its element reference type and size limits.
type TableType struct {
	ElemType RefType
	Limits   Limits
}

// MemType describes one linear memory's size limits, in 64KiB pages.
type MemType struct {
	Limits Limits
}

// GlobalType describes one global's value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// ImportDescKind tags which kind of entity an import resolves to.
type ImportDescKind byte

const (
	ImportFunc ImportDescKind = iota
	ImportTable
	ImportMemory
	ImportGlobal
)

// Import is one entry of the import section.
type Import struct {
	Module string
	Name   string
	Kind   ImportDescKind
	// Exactly one of the following is meaningful, selected by Kind.
	TypeIdx    uint32
	TableType  TableType
	MemType    MemType
	GlobalType GlobalType
}

// ExportDescKind tags which kind of entity an export refers to.
type ExportDescKind byte

const (
	ExportFunc ExportDescKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
)

// Export is one entry of the export section.
type Export struct {
	Name string
	Kind ExportDescKind
	Idx  uint32
}

// Global is one entry of the global section: a type plus a constant
// initializer expression.
type Global struct {
	Type GlobalType
	Init Expr
}

// BlockTypeKind tags how a structured instruction's BlockType is encoded.
type BlockTypeKind byte

const (
	BlockEmpty BlockTypeKind = iota
	BlockValue
	BlockTypeIndex
)

// BlockType is the signature of a structured (block/loop/if) instruction.
type BlockType struct {
	Kind    BlockTypeKind
	ValType ValueType // meaningful when Kind == BlockValue
	TypeIdx uint32    // meaningful when Kind == BlockTypeIndex
}

// MemArg is the alignment/offset immediate pair carried by every
// load/store instruction (including SIMD memory ops).
type MemArg struct {
	Align  uint32
	Offset uint32
	// MemIdx is always 0 in this module version but is kept explicit
	// for forward compatibility with the multi-memory proposal.
	MemIdx uint32
}

// Expr is a sequence of instructions terminated by End (0x0B), used
// both for function bodies and for constant-expression initializers.
type Expr struct {
	Instrs []Instruction
}

// ElemMode tags whether an element segment is active, passive, or
// declarative.
type ElemMode byte

const (
	ElemActive ElemMode = iota
	ElemPassive
	ElemDeclarative
)

// Element is one entry of the element section.
type Element struct {
	Mode     ElemMode
	TableIdx uint32 // meaningful when Mode == ElemActive
	Offset   Expr   // meaningful when Mode == ElemActive
	RefType  RefType
	// Either Funcs (a bare function-index list) or Inits (full constant
	// expressions) is populated, depending on the encoding variant used.
	Funcs []uint32
	Inits []Expr
}

// DataMode tags whether a data segment is active or passive.
type DataMode byte

const (
	DataActive DataMode = iota
	DataPassive
)

// Data is one entry of the data section.
type Data struct {
	Mode   DataMode
	MemIdx uint32 // meaningful when Mode == DataActive
	Offset Expr   // meaningful when Mode == DataActive
	Init   []byte
}

// LocalEntry is a run-length group of same-typed locals in a function body.
type LocalEntry struct {
	Count uint32
	Type  ValueType
}

// Code is one entry of the code section: a function's locals and body.
type Code struct {
	Locals []LocalEntry
	Body   Expr
}

// CustomSection is a named, opaque payload that decodes without being
// interpreted; it may appear anywhere in the section stream.
type CustomSection struct {
	Name    string
	Payload []byte
}

// Module is the fully decoded in-memory form of a binary module.
type Module struct {
	Types      []FuncType
	Imports    []Import
	FuncTypes  []uint32 // one TypeIdx per locally-defined function
	Tables     []TableType
	Mems       []MemType
	Globals    []Global
	Exports    []Export
	HasStart   bool
	StartIdx   uint32
	Elements   []Element
	Codes      []Code
	Datas      []Data
	HasDataCount bool
	DataCount    uint32
	Customs    []CustomSection

	// NumImportedFuncs/.../NumImportedGlobals record how many of the
	// respective index spaces are supplied by imports, so that
	// "local index" and "global index space index" can both be derived
	// without re-scanning Imports.
	NumImportedFuncs   int
	NumImportedTables  int
	NumImportedMems    int
	NumImportedGlobals int
}

// FuncCount returns the total size of the function index space
// (imported functions followed by locally-defined ones).
func (m *Module) FuncCount() int {
	return m.NumImportedFuncs + len(m.FuncTypes)
}

// FuncTypeIndex returns the TypeIdx for a function index spanning both
// imported and local functions.
func (m *Module) FuncTypeIndex(funcIdx uint32) (uint32, bool) {
	if int(funcIdx) < m.NumImportedFuncs {
		n := 0
		for _, imp := range m.Imports {
			if imp.Kind != ImportFunc {
				continue
			}
			if n == int(funcIdx) {
				return imp.TypeIdx, true
			}
			n++
		}
		return 0, false
	}
	local := int(funcIdx) - m.NumImportedFuncs
	if local < 0 || local >= len(m.FuncTypes) {
		return 0, false
	}
	return m.FuncTypes[local], true
}

// ImportedGlobalType returns the GlobalType of the globalIdx-th entry
// of the imported-globals index space (globalIdx must be less than
// NumImportedGlobals; locally-defined globals aren't addressable here
// since constant expressions may only reference imports).
func (m *Module) ImportedGlobalType(globalIdx uint32) (GlobalType, bool) {
	n := 0
	for _, imp := range m.Imports {
		if imp.Kind != ImportGlobal {
			continue
		}
		if n == int(globalIdx) {
			return imp.GlobalType, true
		}
		n++
	}
	return GlobalType{}, false
}
