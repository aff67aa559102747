package linker

import (
	"fmt"

	"github.com/vertexvm/vertexvm/instance"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

// HostFunc is a single host-implemented function: its module-visible
// signature and the Go closure invoked when a guest module calls it.
type HostFunc struct {
	Type wasm.FuncType
	Fn   func(args []value.Val) ([]value.Val, error)
}

// HostModule is an Importer backed entirely by Go closures. It lets a
// caller wire host capabilities (storage, crypto, logging) into a
// module's import namespace without standing up a second VM.
type HostModule struct {
	ModuleName string
	Funcs      map[string]HostFunc
}

// NewHostModule builds an empty host module named name.
func NewHostModule(name string) *HostModule {
	return &HostModule{ModuleName: name, Funcs: map[string]HostFunc{}}
}

// AddFunc registers a host function under field name.
func (h *HostModule) AddFunc(name string, t wasm.FuncType, fn func(args []value.Val) ([]value.Val, error)) {
	h.Funcs[name] = HostFunc{Type: t, Fn: fn}
}

// Name implements Importer.
func (h *HostModule) Name() string { return h.ModuleName }

// ResolveFunc implements Importer.
func (h *HostModule) ResolveFunc(name string) (*instance.Func, bool) {
	f, ok := h.Funcs[name]
	if !ok {
		return nil, false
	}
	return instance.NewOuterFunc(f.Type, h.ModuleName, name), true
}

// ResolveTable implements Importer; host modules export no tables.
func (h *HostModule) ResolveTable(string) (*instance.Table, bool) { return nil, false }

// ResolveMemory implements Importer; host modules export no memories.
func (h *HostModule) ResolveMemory(string) (*instance.Memory, bool) { return nil, false }

// ResolveGlobal implements Importer; host modules export no globals.
func (h *HostModule) ResolveGlobal(string) (*instance.Global, bool) { return nil, false }

// CallByName implements Importer, dispatching to the registered closure.
func (h *HostModule) CallByName(name string, args []value.Val) ([]value.Val, error) {
	f, ok := h.Funcs[name]
	if !ok {
		return nil, fmt.Errorf("linker: host module %q has no function %q", h.ModuleName, name)
	}
	return f.Fn(args)
}
