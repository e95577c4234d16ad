package zipview

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip assembles a minimal single-entry ZIP: one local file header +
// stored "payload" bytes, one central directory file header pointing back
// at it, and the EOCD record pointing at the central directory.
func buildZip(name string, payload []byte) []byte {
	nameBytes := []byte(name)

	lfh := make([]byte, 30+len(nameBytes))
	binary.LittleEndian.PutUint32(lfh[0:], lfhSignature)
	binary.LittleEndian.PutUint16(lfh[4:], 20) // version_needed
	binary.LittleEndian.PutUint16(lfh[6:], 0)  // flags
	binary.LittleEndian.PutUint16(lfh[8:], 0)  // compression_method: stored
	binary.LittleEndian.PutUint16(lfh[10:], 0) // mod_time
	binary.LittleEndian.PutUint16(lfh[12:], 0) // mod_date
	binary.LittleEndian.PutUint32(lfh[14:], 0) // crc32
	binary.LittleEndian.PutUint32(lfh[18:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(lfh[22:], uint32(len(payload)))
	binary.LittleEndian.PutUint16(lfh[26:], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint16(lfh[28:], 0) // extra_length
	copy(lfh[30:], nameBytes)

	lfhOffset := 0
	var data []byte
	data = append(data, lfh...)
	data = append(data, payload...)

	cdfh := make([]byte, 46+len(nameBytes))
	binary.LittleEndian.PutUint32(cdfh[0:], cdfhSignature)
	binary.LittleEndian.PutUint16(cdfh[4:], 20) // version_made_by
	binary.LittleEndian.PutUint16(cdfh[6:], 20) // version_needed
	binary.LittleEndian.PutUint16(cdfh[8:], 0)  // flags
	binary.LittleEndian.PutUint16(cdfh[10:], 0) // compression_method
	binary.LittleEndian.PutUint16(cdfh[12:], 0) // mod_time
	binary.LittleEndian.PutUint16(cdfh[14:], 0) // mod_date
	binary.LittleEndian.PutUint32(cdfh[16:], 0) // crc32
	binary.LittleEndian.PutUint32(cdfh[20:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(cdfh[24:], uint32(len(payload)))
	binary.LittleEndian.PutUint16(cdfh[28:], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint16(cdfh[30:], 0) // extra_length
	binary.LittleEndian.PutUint16(cdfh[32:], 0) // comment_length
	binary.LittleEndian.PutUint16(cdfh[34:], 0) // disk_number_start
	binary.LittleEndian.PutUint16(cdfh[36:], 0) // internal_attrs
	binary.LittleEndian.PutUint32(cdfh[38:], 0) // external_attrs
	binary.LittleEndian.PutUint32(cdfh[42:], uint32(lfhOffset))
	copy(cdfh[46:], nameBytes)

	cdOffset := len(data)
	data = append(data, cdfh...)

	eocd := make([]byte, 22)
	binary.LittleEndian.PutUint32(eocd[0:], 0x06054b50)
	binary.LittleEndian.PutUint16(eocd[4:], 0) // disk_number
	binary.LittleEndian.PutUint16(eocd[6:], 0) // cd_start_disk
	binary.LittleEndian.PutUint16(eocd[8:], 1) // entries_this_disk
	binary.LittleEndian.PutUint16(eocd[10:], 1)
	binary.LittleEndian.PutUint32(eocd[12:], uint32(len(cdfh)))
	binary.LittleEndian.PutUint32(eocd[16:], uint32(cdOffset))
	binary.LittleEndian.PutUint16(eocd[20:], 0) // comment_length
	data = append(data, eocd...)

	return data
}

func TestViewFindsSingleEntry(t *testing.T) {
	data := buildZip("report.docx", []byte("hello forensic world"))

	summary, err := View(data)
	require.NoError(t, err)

	assert.Equal(t, uint16(1), summary.EOCD.EntriesTotal)
	require.NotNil(t, summary.FirstEntry)
	assert.Equal(t, "report.docx", summary.FirstEntry.Name)
	assert.Equal(t, uint32(len("hello forensic world")), summary.FirstEntry.UncompressedSize)

	require.NotNil(t, summary.FirstLocalHeader)
	assert.Equal(t, "report.docx", summary.FirstLocalHeader.Name)
}

func TestViewEmptyArchive(t *testing.T) {
	eocd := make([]byte, 22)
	binary.LittleEndian.PutUint32(eocd[0:], 0x06054b50)

	summary, err := View(eocd)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), summary.EOCD.EntriesTotal)
	assert.Nil(t, summary.FirstEntry)
}

func TestViewMissingEOCDErrors(t *testing.T) {
	_, err := View([]byte("not a zip file"))
	assert.Error(t, err)
}

func TestFindEOCDSkipsTrailingComment(t *testing.T) {
	data := buildZip("a.txt", []byte("x"))
	comment := []byte("a trailing comment that is not the signature")
	data = append(data, comment...)
	binary.LittleEndian.PutUint16(data[len(data)-len(comment)-2:], uint16(len(comment)))

	offset, err := findEOCD(data)
	require.NoError(t, err)
	assert.Equal(t, len(data)-len(comment)-22, offset)
}
