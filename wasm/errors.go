package wasm

import (
	"fmt"

	"github.com/pkg/errors"
)

// DecodeError reports a malformed binary module, optionally anchored
// to the byte offset at which decoding failed.
type DecodeError struct {
	Offset  uint32
	Message string
	cause   error
}

func (e *DecodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("wasm: decode error at offset %d: %s: %v", e.Offset, e.Message, e.cause)
	}
	return fmt.Sprintf("wasm: decode error at offset %d: %s", e.Offset, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *DecodeError) Unwrap() error { return e.cause }

func decodeErr(offset uint32, msg string) error {
	return &DecodeError{Offset: offset, Message: msg}
}

func wrapDecodeErr(offset uint32, msg string, cause error) error {
	return &DecodeError{Offset: offset, Message: msg, cause: errors.Wrap(cause, msg)}
}

var (
	// ErrBadMagic is returned when the module lacks the "\0asm" preamble.
	ErrBadMagic = errors.New("wasm: bad magic number")
	// ErrBadVersion is returned for any version other than 1.
	ErrBadVersion = errors.New("wasm: unsupported version")
	// ErrSectionOrder is returned when a non-custom section id repeats.
	// DataCount is placed before Code/Data in the binary layout despite
	// having a higher section id, so only at-most-once is enforced here,
	// not ascending numeric order.
	ErrSectionOrder = errors.New("wasm: duplicate section")
	// ErrSectionSizeMismatch is returned when a section's declared byte
	// length does not match the bytes its contents actually consumed.
	ErrSectionSizeMismatch = errors.New("wasm: section size mismatch")
	// ErrCodeFuncMismatch is returned when the code and function
	// sections disagree on count.
	ErrCodeFuncMismatch = errors.New("wasm: code/function section count mismatch")
	// ErrDataCountMismatch is returned when an explicit data-count
	// section disagrees with the data section's actual entry count.
	ErrDataCountMismatch = errors.New("wasm: data count section mismatch")
	// ErrDataCountRequired names the case of memory.init or data.drop
	// appearing without a data-count section. Decode does not return
	// it: that check is made after decoding, by validate.Module, which
	// reports validate.ErrDataCountRequired.
	ErrDataCountRequired = errors.New("wasm: memory.init/data.drop require a data count section")
	// ErrTooManyLocals is returned when a function's locals sum to 2^28
	// or more.
	ErrTooManyLocals = errors.New("wasm: function declares too many locals")
	// ErrMalformedElemType is returned for an element-segment flag/type
	// combination that isn't one of the eight defined encodings.
	ErrMalformedElemType = errors.New("wasm: malformed element segment")
	// ErrReservedByteNonZero is returned when the single reserved byte
	// following memory.size/memory.grow is not zero.
	ErrReservedByteNonZero = errors.New("wasm: reserved byte must be zero")
	// ErrUnknownOpcode is returned when the decoder encounters a byte
	// that is not a defined opcode (or, for 0xFC/0xFD, a defined subcode).
	ErrUnknownOpcode = errors.New("wasm: unknown opcode")
)
