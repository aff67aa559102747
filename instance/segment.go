package instance

import "github.com/vertexvm/vertexvm/value"

// Element is a runtime element-segment instance: a droppable vector
// of references used to populate tables via table.init or active
// initialization at instantiation time.
type Element struct {
	RefType byte
	Refs    []value.Val
	Dropped bool
}

// Drop clears the segment's payload in place, matching the "dropped
// segments retain their slot but lose their contents" invariant. Dropped
// is tracked explicitly so a zero-length segment can't be mistaken for
// one that's already been dropped.
func (e *Element) Drop() {
	e.Refs = nil
	e.Dropped = true
}

// Data is a runtime data-segment instance: a droppable byte vector
// used to populate memory via memory.init or active initialization.
type Data struct {
	Bytes   []byte
	Dropped bool
}

// Drop clears the segment's payload in place.
func (d *Data) Drop() {
	d.Bytes = nil
	d.Dropped = true
}
