package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertexvm/vertexvm/instance"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	h := NewHostModule("env")
	r.Register("env", h)

	imp, ok := r.Lookup("env")
	require.True(t, ok)
	assert.Equal(t, "env", imp.Name())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestResolveFuncMissingModule(t *testing.T) {
	r := NewRegistry()
	_, err := r.ResolveFunc("env", "f")
	var linkErr *LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, "env", linkErr.Module)
	assert.Equal(t, "", linkErr.Field)
}

func TestResolveFuncMissingField(t *testing.T) {
	r := NewRegistry()
	h := NewHostModule("env")
	r.Register("env", h)

	_, err := r.ResolveFunc("env", "missing")
	var linkErr *LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, "function not found", linkErr.Reason)
}

func TestResolveFuncWrapsAsOuter(t *testing.T) {
	r := NewRegistry()
	h := NewHostModule("env")
	ft := wasm.FuncType{Params: []wasm.ValueType{value.I32}, Results: []wasm.ValueType{value.I32}}
	h.AddFunc("double", ft, func(args []value.Val) ([]value.Val, error) {
		return []value.Val{value.I32Val(args[0].I32 * 2)}, nil
	})
	r.Register("env", h)

	f, err := r.ResolveFunc("env", "double")
	require.NoError(t, err)
	assert.Equal(t, instance.FuncOuter, f.Kind)
	assert.Equal(t, "env", f.Importer)
	assert.Equal(t, "double", f.ImportName)
	assert.Equal(t, ft, f.Type)
}

func TestResolveTableMemoryGlobalMissing(t *testing.T) {
	r := NewRegistry()
	r.Register("env", NewHostModule("env"))

	_, err := r.ResolveTable("env", "t")
	assert.Error(t, err)
	_, err = r.ResolveMemory("env", "m")
	assert.Error(t, err)
	_, err = r.ResolveGlobal("env", "g")
	assert.Error(t, err)
}

func TestLinkErrorMessages(t *testing.T) {
	e1 := &LinkError{Module: "env"}
	assert.Equal(t, `linker: module "env" not found`, e1.Error())

	e2 := &LinkError{Module: "env", Field: "f", Reason: "function not found"}
	assert.Equal(t, `linker: env.f: function not found`, e2.Error())
}

func TestHostModuleCallByName(t *testing.T) {
	h := NewHostModule("env")
	h.AddFunc("add", wasm.FuncType{}, func(args []value.Val) ([]value.Val, error) {
		return []value.Val{value.I32Val(args[0].I32 + args[1].I32)}, nil
	})

	res, err := h.CallByName("add", []value.Val{value.I32Val(2), value.I32Val(3)})
	require.NoError(t, err)
	assert.Equal(t, value.I32Val(5), res[0])

	_, err = h.CallByName("missing", nil)
	assert.Error(t, err)
}

func TestHostModuleResolveNoTablesMemoriesGlobals(t *testing.T) {
	h := NewHostModule("env")
	_, ok := h.ResolveTable("t")
	assert.False(t, ok)
	_, ok = h.ResolveMemory("m")
	assert.False(t, ok)
	_, ok = h.ResolveGlobal("g")
	assert.False(t, ok)
}
