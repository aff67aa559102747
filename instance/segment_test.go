package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vertexvm/vertexvm/value"
)

func TestElementDrop(t *testing.T) {
	e := &Element{RefType: 0, Refs: []value.Val{value.FuncRefVal(1), value.FuncRefVal(2)}}
	assert.False(t, e.Dropped)
	e.Drop()
	assert.True(t, e.Dropped)
	assert.Nil(t, e.Refs)
}

func TestDataDrop(t *testing.T) {
	d := &Data{Bytes: []byte{1, 2, 3}}
	assert.False(t, d.Dropped)
	d.Drop()
	assert.True(t, d.Dropped)
	assert.Nil(t, d.Bytes)
}
