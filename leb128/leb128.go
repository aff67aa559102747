// Package leb128 decodes LEB128 variable-length integers, in both the
// unsigned and signed (zig-zag-free, sign-extended) encodings used
// throughout the WebAssembly binary format.
package leb128

import (
	"github.com/vertexvm/vertexvm/reader"
)

// maxBits caps the number of value bits a given integer width may
// carry; decoding more bits than this without terminating is malformed.
const (
	maxShiftU32 = 32
	maxShiftU64 = 64
)

// ReadUint32 decodes an unsigned LEB128 value into a uint32.
func ReadUint32(r *reader.Reader) (uint32, error) {
	v, err := readUnsigned(r, maxShiftU32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// ReadUint64 decodes an unsigned LEB128 value into a uint64.
func ReadUint64(r *reader.Reader) (uint64, error) {
	return readUnsigned(r, maxShiftU64)
}

// ReadInt32 decodes a signed LEB128 value into an int32.
func ReadInt32(r *reader.Reader) (int32, error) {
	v, err := readSigned(r, maxShiftU32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ReadInt64 decodes a signed LEB128 value into an int64.
func ReadInt64(r *reader.Reader) (int64, error) {
	return readSigned(r, maxShiftU64)
}

func readUnsigned(r *reader.Reader, maxBits uint) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, ErrUnexpectedEnd
		}
		if shift >= maxBits {
			return 0, ErrTooLong
		}
		low := uint64(b & 0x7f)
		if shift == (maxBits/7)*7 {
			// Final byte: any set bit beyond maxBits is overflow.
			allowed := maxBits - shift
			if low>>allowed != 0 {
				return 0, ErrIntTooLarge
			}
		}
		result |= low << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	return result, nil
}

func readSigned(r *reader.Reader, maxBits uint) (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, ErrUnexpectedEnd
		}
		if shift >= maxBits {
			return 0, ErrTooLong
		}
		low := int64(b & 0x7f)
		result |= low << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < maxBits && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}
