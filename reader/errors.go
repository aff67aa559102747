package reader

import "errors"

// ErrInvalidUTF8 is returned when a name field fails UTF-8 validation.
var ErrInvalidUTF8 = errors.New("reader: invalid utf-8 in name")
