// Package linker resolves a module's imports against host-provided
// importers, and defines the Importer interface a VM implements so
// that modules can call each other without any unsafe back-pointer
// trickery -- a plain Go interface value carries no borrow-checker
// constraint, so the re-entrant host call just takes one as an argument.
package linker

import (
	"fmt"

	"github.com/vertexvm/vertexvm/instance"
	"github.com/vertexvm/vertexvm/value"
)

// Importer is implemented by anything a module can import from: a
// host environment, or another instantiated VM.
type Importer interface {
	// Name identifies this importer for error messages and for
	// Func.Importer bookkeeping.
	Name() string
	ResolveFunc(name string) (*instance.Func, bool)
	ResolveTable(name string) (*instance.Table, bool)
	ResolveMemory(name string) (*instance.Memory, bool)
	ResolveGlobal(name string) (*instance.Global, bool)
	// CallByName invokes an exported or host function by name,
	// re-entering the owning engine. Used for FuncOuter dispatch.
	CallByName(name string, args []value.Val) ([]value.Val, error)
}

// Registry maps an import module name to the Importer that satisfies it.
type Registry struct {
	importers map[string]Importer
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{importers: map[string]Importer{}}
}

// Register binds a module name to an importer.
func (r *Registry) Register(moduleName string, imp Importer) {
	r.importers[moduleName] = imp
}

// Lookup returns the importer registered for moduleName.
func (r *Registry) Lookup(moduleName string) (Importer, bool) {
	imp, ok := r.importers[moduleName]
	return imp, ok
}

// LinkError reports a failure to resolve an import.
type LinkError struct {
	Module string
	Field  string
	Reason string
}

func (e *LinkError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("linker: module %q not found", e.Module)
	}
	return fmt.Sprintf("linker: %s.%s: %s", e.Module, e.Field, e.Reason)
}

// ResolveFunc resolves a function import, wrapping it as an outer
// function instance bound to the given importer.
func (r *Registry) ResolveFunc(moduleName, field string) (*instance.Func, error) {
	imp, ok := r.Lookup(moduleName)
	if !ok {
		return nil, &LinkError{Module: moduleName}
	}
	f, ok := imp.ResolveFunc(field)
	if !ok {
		return nil, &LinkError{Module: moduleName, Field: field, Reason: "function not found"}
	}
	return instance.NewOuterFunc(f.Type, imp.Name(), field), nil
}

// ResolveTable resolves a table import.
func (r *Registry) ResolveTable(moduleName, field string) (*instance.Table, error) {
	imp, ok := r.Lookup(moduleName)
	if !ok {
		return nil, &LinkError{Module: moduleName}
	}
	t, ok := imp.ResolveTable(field)
	if !ok {
		return nil, &LinkError{Module: moduleName, Field: field, Reason: "table not found"}
	}
	return t, nil
}

// ResolveMemory resolves a memory import.
func (r *Registry) ResolveMemory(moduleName, field string) (*instance.Memory, error) {
	imp, ok := r.Lookup(moduleName)
	if !ok {
		return nil, &LinkError{Module: moduleName}
	}
	m, ok := imp.ResolveMemory(field)
	if !ok {
		return nil, &LinkError{Module: moduleName, Field: field, Reason: "memory not found"}
	}
	return m, nil
}

// ResolveGlobal resolves a global import.
func (r *Registry) ResolveGlobal(moduleName, field string) (*instance.Global, error) {
	imp, ok := r.Lookup(moduleName)
	if !ok {
		return nil, &LinkError{Module: moduleName}
	}
	g, ok := imp.ResolveGlobal(field)
	if !ok {
		return nil, &LinkError{Module: moduleName, Field: field, Reason: "global not found"}
	}
	return g, nil
}
