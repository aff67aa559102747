// Package instance holds the runtime representations allocated during
// module instantiation: functions, tables, memories, globals, and the
// element/data segments they're populated from.
package instance

import "github.com/vertexvm/vertexvm/wasm"

// FuncKind distinguishes a module-local function backed by decoded
// bytecode from a host function supplied through an importer.
type FuncKind int

const (
	FuncInner FuncKind = iota
	FuncOuter
)

// Func is a runtime function instance. Go's garbage collector makes
// the shared-ownership bookkeeping other languages need here
// unnecessary: a *Func is simply held directly wherever it's
// referenced (table slots, the export map, call sites).
type Func struct {
	Type wasm.FuncType
	Kind FuncKind

	// Inner fields, meaningful when Kind == FuncInner.
	Code *wasm.Code

	// Outer fields, meaningful when Kind == FuncOuter. Importer is
	// rewrapped with the originating module's name rather than kept as
	// a back-reference to the importing VM, avoiding a reference cycle
	// between caller and callee.
	Importer   string
	ImportName string
}

// NewInnerFunc builds a function instance backed by a module's own code.
func NewInnerFunc(t wasm.FuncType, code *wasm.Code) *Func {
	return &Func{Type: t, Kind: FuncInner, Code: code}
}

// NewOuterFunc builds a function instance that forwards calls to a
// host importer identified by name.
func NewOuterFunc(t wasm.FuncType, importer, name string) *Func {
	return &Func{Type: t, Kind: FuncOuter, Importer: importer, ImportName: name}
}
