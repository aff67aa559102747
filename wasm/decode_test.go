package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertexvm/vertexvm/leb128"
)

func appendSec(buf []byte, id SectionID, payload []byte) []byte {
	buf = append(buf, byte(id))
	buf = leb128.AppendUint32(buf, uint32(len(payload)))
	return append(buf, payload...)
}

// TestDecodeAcceptsDataCountBeforeCode builds a minimal module with the
// DataCount section (id 12) preceding Code (id 10) and Data (id 11), the
// order the binary format actually requires despite DataCount's higher
// numeric id, and confirms Decode doesn't reject it as out of order.
func TestDecodeAcceptsDataCountBeforeCode(t *testing.T) {
	var b []byte
	b = append(b, 0x00, 'a', 's', 'm', 1, 0, 0, 0)

	typeSec := []byte{1, 0x60, 0, 0} // one type: () -> ()
	b = appendSec(b, SecType, typeSec)

	funcSec := []byte{1, 0} // one function, type idx 0
	b = appendSec(b, SecFunction, funcSec)

	dataCountSec := []byte{0} // zero data segments
	b = appendSec(b, SecDataCount, dataCountSec)

	codeBody := []byte{0, 0x0B} // zero local groups, End
	codeSec := append([]byte{1}, leb128.AppendUint32(nil, uint32(len(codeBody)))...)
	codeSec = append(codeSec, codeBody...)
	b = appendSec(b, SecCode, codeSec)

	m, err := Decode(b)
	require.NoError(t, err)
	assert.True(t, m.HasDataCount)
	assert.Equal(t, uint32(0), m.DataCount)
	assert.Len(t, m.Codes, 1)
}

func TestDecodeRejectsDuplicateSection(t *testing.T) {
	var b []byte
	b = append(b, 0x00, 'a', 's', 'm', 1, 0, 0, 0)
	typeSec := []byte{0}
	b = appendSec(b, SecType, typeSec)
	b = appendSec(b, SecType, typeSec)

	_, err := Decode(b)
	assert.Error(t, err)
}
