package instance

import (
	"errors"

	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

// ErrImmutableGlobal is returned by Global.Set on a const-declared global.
var ErrImmutableGlobal = errors.New("instance: global is immutable")

// Global is a runtime global variable instance.
type Global struct {
	Type wasm.GlobalType
	val  value.Val
}

// NewGlobal constructs a global instance holding its evaluated
// initializer value.
func NewGlobal(t wasm.GlobalType, v value.Val) *Global {
	return &Global{Type: t, val: v}
}

// Value returns the global's current value.
func (g *Global) Value() value.Val {
	return g.val
}

// Set overwrites the global's value, rejecting mutation of a const global.
func (g *Global) Set(v value.Val) error {
	if !g.Type.Mutable {
		return ErrImmutableGlobal
	}
	g.val = v
	return nil
}
