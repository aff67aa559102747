// Package vm implements the WebAssembly execution engine: a stack
// machine that runs over a decoded, validated module.
package vm

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/vertexvm/vertexvm/instance"
	"github.com/vertexvm/vertexvm/linker"
	"github.com/vertexvm/vertexvm/validate"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

// VM is one instantiated module: its runtime instances, operand stack,
// and the configuration governing its execution limits.
type VM struct {
	name   string
	module *wasm.Module

	operands []value.Val
	frames   frameStack

	funcs    []*instance.Func
	tables   []*instance.Table
	mems     []*instance.Memory
	globals  []*instance.Global
	elements []*instance.Element
	datas    []*instance.Data
	exports  map[string]wasm.Export

	registry *linker.Registry
	cfg      Config
	gas      Gas
}

// NewFromBytes decodes, validates, and instantiates a module from its
// binary encoding.
func NewFromBytes(name string, data []byte, registry *linker.Registry, opts ...Option) (*VM, error) {
	m, err := wasm.Decode(data)
	if err != nil {
		return nil, err
	}
	return NewFromModule(name, m, registry, opts...)
}

// NewFromFile decodes, validates, and instantiates a module loaded from disk.
func NewFromFile(name, path string, registry *linker.Registry, opts ...Option) (*VM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vm: reading %s: %w", path, err)
	}
	return NewFromBytes(name, data, registry, opts...)
}

// NewFromModule validates and instantiates an already-decoded module.
func NewFromModule(name string, m *wasm.Module, registry *linker.Registry, opts ...Option) (*VM, error) {
	if err := validate.Module(m); err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if registry == nil {
		registry = linker.NewRegistry()
	}
	v := &VM{
		name:     name,
		module:   m,
		registry: registry,
		cfg:      cfg,
		gas:      Gas{Limit: cfg.GasLimit},
		exports:  map[string]wasm.Export{},
	}
	if err := v.instantiate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Name identifies this VM as a linker.Importer.
func (v *VM) Name() string { return v.name }

func (v *VM) log() logrus.FieldLogger { return v.cfg.Logger }

// instantiate runs the allocation pipeline in the order the reference
// implementation uses: functions, then tables+elements, then
// memories+data, then globals, then exports, then the start function.
// This differs from the textual section order but matches how the
// original engine actually wires instances together.
func (v *VM) instantiate() error {
	if err := v.linkImports(); err != nil {
		return err
	}
	v.allocateFuncs()
	if err := v.allocateTablesAndElements(); err != nil {
		return err
	}
	if err := v.allocateMemsAndData(); err != nil {
		return err
	}
	if err := v.allocateGlobals(); err != nil {
		return err
	}
	v.populateExports()
	return v.callStart()
}

func (v *VM) linkImports() error {
	for _, imp := range v.module.Imports {
		switch imp.Kind {
		case wasm.ImportFunc:
			f, err := v.registry.ResolveFunc(imp.Module, imp.Name)
			if err != nil {
				return err
			}
			v.funcs = append(v.funcs, f)
		case wasm.ImportTable:
			t, err := v.registry.ResolveTable(imp.Module, imp.Name)
			if err != nil {
				return err
			}
			v.tables = append(v.tables, t)
		case wasm.ImportMemory:
			mem, err := v.registry.ResolveMemory(imp.Module, imp.Name)
			if err != nil {
				return err
			}
			v.mems = append(v.mems, mem)
		case wasm.ImportGlobal:
			g, err := v.registry.ResolveGlobal(imp.Module, imp.Name)
			if err != nil {
				return err
			}
			v.globals = append(v.globals, g)
		}
	}
	return nil
}

func (v *VM) allocateFuncs() {
	for i, typeIdx := range v.module.FuncTypes {
		code := &v.module.Codes[i]
		v.funcs = append(v.funcs, instance.NewInnerFunc(v.module.Types[typeIdx], code))
	}
}

func (v *VM) allocateTablesAndElements() error {
	for _, tt := range v.module.Tables {
		v.tables = append(v.tables, instance.NewTable(tt))
	}
	for _, el := range v.module.Elements {
		refs, err := v.evalElementRefs(el)
		if err != nil {
			return err
		}
		inst := &instance.Element{RefType: byte(el.RefType), Refs: refs}
		v.elements = append(v.elements, inst)

		switch el.Mode {
		case wasm.ElemActive:
			offVal, err := v.evalConstExpr(el.Offset)
			if err != nil {
				return err
			}
			offset := offVal.AsU32()
			table := v.tables[el.TableIdx]
			if uint64(offset)+uint64(len(refs)) > uint64(table.Size()) {
				return ErrOutOfBoundTableAccess
			}
			for i, ref := range refs {
				table.Set(offset+uint32(i), ref)
			}
			inst.Drop()
		case wasm.ElemDeclarative:
			inst.Drop()
		case wasm.ElemPassive:
			// retained until table.init or elem.drop
		}
	}
	return nil
}

func (v *VM) evalElementRefs(el wasm.Element) ([]value.Val, error) {
	if el.Inits != nil {
		refs := make([]value.Val, len(el.Inits))
		for i, expr := range el.Inits {
			val, err := v.evalConstExpr(expr)
			if err != nil {
				return nil, err
			}
			refs[i] = val
		}
		return refs, nil
	}
	refs := make([]value.Val, len(el.Funcs))
	for i, idx := range el.Funcs {
		refs[i] = value.FuncRefVal(idx)
	}
	return refs, nil
}

func (v *VM) allocateMemsAndData() error {
	for _, mt := range v.module.Mems {
		v.mems = append(v.mems, instance.NewMemory(mt))
	}
	for _, d := range v.module.Datas {
		inst := &instance.Data{Bytes: append([]byte(nil), d.Init...)}
		v.datas = append(v.datas, inst)

		if d.Mode == wasm.DataActive {
			offVal, err := v.evalConstExpr(d.Offset)
			if err != nil {
				return err
			}
			offset := offVal.AsU32()
			mem := v.mems[d.MemIdx]
			if _, err := mem.Write(d.Init, uint64(offset)); err != nil {
				return ErrOutOfBoundMemoryAccess
			}
			inst.Drop()
		}
	}
	return nil
}

func (v *VM) allocateGlobals() error {
	for _, g := range v.module.Globals {
		val, err := v.evalConstExpr(g.Init)
		if err != nil {
			return err
		}
		v.globals = append(v.globals, instance.NewGlobal(g.Type, val))
	}
	return nil
}

func (v *VM) populateExports() {
	for _, ex := range v.module.Exports {
		v.exports[ex.Name] = ex
	}
}

func (v *VM) callStart() error {
	if !v.module.HasStart {
		return nil
	}
	_, err := v.Invoke(int(v.module.StartIdx))
	return err
}

// ResolveFunc implements linker.Importer.
func (v *VM) ResolveFunc(name string) (*instance.Func, bool) {
	ex, ok := v.exports[name]
	if !ok || ex.Kind != wasm.ExportFunc {
		return nil, false
	}
	return v.funcs[ex.Idx], true
}

// ResolveTable implements linker.Importer.
func (v *VM) ResolveTable(name string) (*instance.Table, bool) {
	ex, ok := v.exports[name]
	if !ok || ex.Kind != wasm.ExportTable {
		return nil, false
	}
	return v.tables[ex.Idx], true
}

// ResolveMemory implements linker.Importer.
func (v *VM) ResolveMemory(name string) (*instance.Memory, bool) {
	ex, ok := v.exports[name]
	if !ok || ex.Kind != wasm.ExportMemory {
		return nil, false
	}
	return v.mems[ex.Idx], true
}

// ResolveGlobal implements linker.Importer.
func (v *VM) ResolveGlobal(name string) (*instance.Global, bool) {
	ex, ok := v.exports[name]
	if !ok || ex.Kind != wasm.ExportGlobal {
		return nil, false
	}
	return v.globals[ex.Idx], true
}

// CallByName implements linker.Importer, and is the public entry point
// for invoking an export with already-constructed argument values.
func (v *VM) CallByName(name string, args []value.Val) (result []value.Val, err error) {
	ex, ok := v.exports[name]
	if !ok || ex.Kind != wasm.ExportFunc {
		return nil, ErrExportNotFound
	}
	return v.Invoke(int(ex.Idx), args...)
}

// Invoke calls the function at funcIdx with the given arguments,
// recovering any trap raised during execution and returning it as a
// plain error.
func (v *VM) Invoke(funcIdx int, args ...value.Val) (result []value.Val, err error) {
	defer func() {
		if r := recover(); r != nil {
			trap, ok := r.(*Trap)
			if !ok {
				panic(r)
			}
			err = trap
		}
	}()
	return v.invokeIndex(funcIdx, args)
}

// GetFunctionIndex returns the index of the exported function named name.
func (v *VM) GetFunctionIndex(name string) (int, error) {
	ex, ok := v.exports[name]
	if !ok || ex.Kind != wasm.ExportFunc {
		return 0, ErrFuncNotFound
	}
	return int(ex.Idx), nil
}

// MemSize returns the page count of the VM's first memory.
func (v *VM) MemSize() int {
	if len(v.mems) == 0 {
		return 0
	}
	return int(v.mems[0].SizePages())
}

// MemRead reads len(buf) bytes from the VM's first memory at offset.
func (v *VM) MemRead(buf []byte, offset uint64) (int, error) {
	return v.mems[0].Read(buf, offset)
}

// MemWrite writes data into the VM's first memory at offset.
func (v *VM) MemWrite(data []byte, offset uint64) (int, error) {
	return v.mems[0].Write(data, offset)
}
