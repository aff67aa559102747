package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

func TestGlobalValue(t *testing.T) {
	g := NewGlobal(wasm.GlobalType{ValType: value.I32, Mutable: true}, value.I32Val(5))
	assert.Equal(t, value.I32Val(5), g.Value())
}

func TestGlobalSetMutable(t *testing.T) {
	g := NewGlobal(wasm.GlobalType{ValType: value.I32, Mutable: true}, value.I32Val(5))
	assert.NoError(t, g.Set(value.I32Val(9)))
	assert.Equal(t, value.I32Val(9), g.Value())
}

func TestGlobalSetImmutableRejected(t *testing.T) {
	g := NewGlobal(wasm.GlobalType{ValType: value.I32, Mutable: false}, value.I32Val(5))
	assert.Equal(t, ErrImmutableGlobal, g.Set(value.I32Val(9)))
	assert.Equal(t, value.I32Val(5), g.Value())
}
