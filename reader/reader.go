// Package reader provides a cursor over an in-memory byte buffer used
// by the binary decoder and by constant-expression evaluation.
package reader

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"
)

// Reader is a forward-only cursor over a byte slice.
type Reader struct {
	b   []byte
	pos uint32
}

// New wraps b in a Reader starting at offset 0.
func New(b []byte) *Reader {
	return &Reader{b: b}
}

// Pos returns the current byte offset.
func (r *Reader) Pos() uint32 {
	return r.pos
}

// Len returns the total buffer length.
func (r *Reader) Len() uint32 {
	return uint32(len(r.b))
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() uint32 {
	return r.Len() - r.pos
}

// AtEnd reports whether the cursor has consumed the whole buffer.
func (r *Reader) AtEnd() bool {
	return r.pos >= r.Len()
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= uint32(len(r.b)) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.b[r.pos]
	r.pos++
	return b, nil
}

// PeekByte returns the next byte without advancing the cursor.
func (r *Reader) PeekByte() (byte, error) {
	if r.pos >= uint32(len(r.b)) {
		return 0, io.ErrUnexpectedEOF
	}
	return r.b[r.pos], nil
}

// Read consumes and returns the next n bytes.
func (r *Reader) Read(n uint32) ([]byte, error) {
	if r.pos+n > uint32(len(r.b)) || r.pos+n < r.pos {
		return nil, io.ErrUnexpectedEOF
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Rest returns every remaining byte without advancing the cursor.
func (r *Reader) Rest() []byte {
	return r.b[r.pos:]
}

// Slice returns a sub-reader over the next n bytes, advancing past
// them in the parent. Used to give each section its own bounded cursor.
func (r *Reader) Slice(n uint32) (*Reader, error) {
	b, err := r.Read(n)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

// ReadU32LE reads a 4-byte little-endian unsigned integer (used for
// fixed-width SIMD lane immediates and similar raw fields).
func (r *Reader) ReadU32LE() (uint32, error) {
	b, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadF32 reads a 4-byte IEEE-754 single-precision float.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32LE()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads an 8-byte IEEE-754 double-precision float.
func (r *Reader) ReadF64() (float64, error) {
	b, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadV128 reads the 16 raw bytes of a v128 constant.
func (r *Reader) ReadV128() ([16]byte, error) {
	var out [16]byte
	b, err := r.Read(16)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// ReadUTF8 reads n bytes and validates them as UTF-8, as required for
// names in the import/export/custom sections.
func (r *Reader) ReadUTF8(n uint32) (string, error) {
	b, err := r.Read(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}
