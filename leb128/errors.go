package leb128

import "errors"

// ErrUnexpectedEnd is returned when the buffer runs out before a
// continuation-terminated LEB128 sequence completes.
var ErrUnexpectedEnd = errors.New("leb128: unexpected end of input")

// ErrTooLong is returned when a sequence carries more continuation
// bytes than the target integer width can ever need.
var ErrTooLong = errors.New("leb128: integer representation too long")

// ErrIntTooLarge is returned when the decoded value's high bits don't
// fit the target width (non-zero padding bits on the final byte).
var ErrIntTooLarge = errors.New("leb128: integer too large for target type")
