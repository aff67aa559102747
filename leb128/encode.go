package leb128

// AppendUint32 appends the unsigned LEB128 encoding of v to dst.
func AppendUint32(dst []byte, v uint32) []byte { return appendUnsigned(dst, uint64(v)) }

// AppendUint64 appends the unsigned LEB128 encoding of v to dst.
func AppendUint64(dst []byte, v uint64) []byte { return appendUnsigned(dst, v) }

// AppendInt32 appends the signed LEB128 encoding of v to dst.
func AppendInt32(dst []byte, v int32) []byte { return appendSigned(dst, int64(v)) }

// AppendInt64 appends the signed LEB128 encoding of v to dst.
func AppendInt64(dst []byte, v int64) []byte { return appendSigned(dst, v) }

func appendUnsigned(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		return append(dst, b)
	}
}

func appendSigned(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}
