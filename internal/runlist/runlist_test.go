package runlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSingleRun(t *testing.T) {
	// header 0x31: length field 1 byte, offset field 3 bytes.
	buf := []byte{0x31, 0x0A, 0x00, 0x10, 0x00, 0x00}
	runs, consumed, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, uint64(10), runs[0].Length)
	assert.Equal(t, uint64(0x001000), runs[0].Offset)
	assert.False(t, runs[0].Sparse)
	assert.Equal(t, 6, consumed)
}

func TestDecodeMultipleRunsStopsAtTerminator(t *testing.T) {
	buf := []byte{
		0x41, 0x05, 0x00, 0x20, 0x00, 0x00, // run 1: len 5, offset 0x2000
		0x21, 0x03, 0x50, 0x00, // run 2: len 3, offset 0x0050
		0x00,       // terminator
		0xFF, 0xFF, // trailing garbage that must not be consumed
	}
	runs, consumed, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, uint64(5), runs[0].Length)
	assert.Equal(t, uint64(0x2000), runs[0].Offset)
	assert.Equal(t, uint64(3), runs[1].Length)
	assert.Equal(t, uint64(0x50), runs[1].Offset)
	assert.Equal(t, 11, consumed)
	assert.Equal(t, uint64(8), TotalClusters(runs))
}

func TestDecodeSparseRunHasZeroOffset(t *testing.T) {
	// header 0x01: length field 1 byte, offset field 0 bytes (sparse).
	buf := []byte{0x01, 0x08, 0x00}
	runs, _, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Sparse)
	assert.Equal(t, uint64(0), runs[0].Offset)
	assert.Equal(t, uint64(8), runs[0].Length)
}

func TestDecodeTruncatedHeaderErrors(t *testing.T) {
	buf := []byte{0x31, 0x05}
	_, _, err := Decode(buf)
	assert.Error(t, err)
}

func TestDecodeStopsAt0xFFTerminator(t *testing.T) {
	buf := []byte{
		0x41, 0x05, 0x00, 0x20, 0x00, 0x00, // run 1: len 5, offset 0x2000
		0xFF,       // terminator
		0x21, 0x00, // trailing garbage that must not be consumed
	}
	runs, consumed, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, uint64(5), runs[0].Length)
	assert.Equal(t, uint64(0x2000), runs[0].Offset)
	assert.Equal(t, 7, consumed)
}
