package ntfsrecover

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/yongjin04/diskforensics/internal/mbr"
	"github.com/yongjin04/diskforensics/internal/volreader"
)

const testRecordSize = 1024

// writeFileNameAttr appends a resident $FILE_NAME attribute to entry at the
// given offset, returning the offset just past it.
func writeFileNameAttr(entry []byte, offset int, parentRef uint64, name string, namespace byte) int {
	nameUTF16 := utf16.Encode([]rune(name))
	nameBytes := make([]byte, len(nameUTF16)*2)
	for i, u := range nameUTF16 {
		binary.LittleEndian.PutUint16(nameBytes[i*2:], u)
	}

	valueLen := 66 + len(nameBytes)
	attrLen := 24 + valueLen
	attrLen = (attrLen + 7) / 8 * 8

	binary.LittleEndian.PutUint32(entry[offset:], 0x30)        // type
	binary.LittleEndian.PutUint32(entry[offset+4:], uint32(attrLen))
	entry[offset+8] = 0  // non_resident = 0
	entry[offset+9] = 0  // name_length
	binary.LittleEndian.PutUint16(entry[offset+10:], 0) // name_offset
	binary.LittleEndian.PutUint16(entry[offset+12:], 0) // flags
	binary.LittleEndian.PutUint16(entry[offset+14:], 0) // attribute_id

	binary.LittleEndian.PutUint32(entry[offset+16:], uint32(valueLen))
	binary.LittleEndian.PutUint16(entry[offset+20:], 24) // value_offset

	valueOff := offset + 24
	binary.LittleEndian.PutUint64(entry[valueOff:], parentRef)
	entry[valueOff+64] = byte(len(nameUTF16))
	entry[valueOff+65] = namespace
	copy(entry[valueOff+66:], nameBytes)

	return offset + attrLen
}

func writeResidentDataAttr(entry []byte, offset int, data []byte) int {
	return writeResidentDataAttrClaimedLength(entry, offset, data, len(data))
}

// writeResidentDataAttrClaimedLength writes data into the attribute's value
// but records claimedLen as the attribute's value_length field, letting a
// test declare a logical size different from the bytes actually stored;
// writeResidentDataAttr calls it with the real length.
func writeResidentDataAttrClaimedLength(entry []byte, offset int, data []byte, claimedLen int) int {
	attrLen := 24 + len(data)
	attrLen = (attrLen + 7) / 8 * 8

	binary.LittleEndian.PutUint32(entry[offset:], 0x80)
	binary.LittleEndian.PutUint32(entry[offset+4:], uint32(attrLen))
	entry[offset+8] = 0

	binary.LittleEndian.PutUint32(entry[offset+16:], uint32(claimedLen))
	binary.LittleEndian.PutUint16(entry[offset+20:], 24)
	copy(entry[offset+24:], data)

	return offset + attrLen
}

// writeNonResidentDataAttr writes a $DATA attribute with an empty run list
// (just the terminator byte) but a real, caller-chosen logical size. Used
// for the synthetic $MFT record, whose own data length is read by
// MFTDataLength without ever reassembling actual cluster content.
func writeNonResidentDataAttr(entry []byte, offset int, realSize uint64) int {
	const nonResidentHeaderSize = 48
	runlistOffset := 16 + nonResidentHeaderSize
	attrLen := runlistOffset + 1 // one terminator byte
	attrLen = (attrLen + 7) / 8 * 8

	binary.LittleEndian.PutUint32(entry[offset:], 0x80)
	binary.LittleEndian.PutUint32(entry[offset+4:], uint32(attrLen))
	entry[offset+8] = 1 // non_resident = 1

	nr := offset + 16
	binary.LittleEndian.PutUint16(entry[nr+16:], uint16(runlistOffset)) // runlist_offset
	binary.LittleEndian.PutUint64(entry[nr+32:], realSize)              // real_size

	entry[offset+runlistOffset] = 0x00 // empty run list

	return offset + attrLen
}

func buildMFTRecord(inUse, isDirectory bool, attrBuilder func(buf []byte, pos int) int) []byte {
	buf := make([]byte, testRecordSize)
	copy(buf[0:4], []byte("FILE"))
	binary.LittleEndian.PutUint16(buf[4:], 0x2a) // fixup_offset (well past header)
	binary.LittleEndian.PutUint16(buf[6:], 0)    // fixup_count = 0, skip fixup application

	flags := uint16(0)
	if inUse {
		flags |= flagInUse
	}
	if isDirectory {
		flags |= flagIsDirectory
	}
	binary.LittleEndian.PutUint16(buf[22:], flags)

	attrsOffset := 56
	binary.LittleEndian.PutUint16(buf[20:], uint16(attrsOffset))

	pos := attrBuilder(buf, attrsOffset)
	binary.LittleEndian.PutUint32(buf[pos:], 0xFFFFFFFF) // end marker
	binary.LittleEndian.PutUint32(buf[24:], uint32(pos+8))

	return buf
}

func buildImage(t *testing.T, records map[uint64][]byte, maxRecord uint64) string {
	t.Helper()
	img := make([]byte, int(maxRecord+4)*testRecordSize)
	for rn, rec := range records {
		copy(img[int(rn)*testRecordSize:], rec)
	}
	path := filepath.Join(t.TempDir(), "vol.img")
	require.NoError(t, os.WriteFile(path, img, 0o644))
	return path
}

func testScanner(t *testing.T, path string, mftDataLen uint32) *Scanner {
	t.Helper()
	vol, err := volreader.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { vol.Close() })

	bpb := &mbr.NTFSBPB{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		MFTCluster:        0,
		MFTRecordSize:     testRecordSize,
	}
	return NewScanner(vol, bpb, 0)
}

func TestScanDeletedFindsDeletedFile(t *testing.T) {
	mftRecord := buildMFTRecord(true, false, func(buf []byte, pos int) int {
		pos = writeFileNameAttr(buf, pos, rootDirectoryRef, "$MFT", 1)
		return writeNonResidentDataAttr(buf, pos, 4*testRecordSize)
	})
	deletedFile := buildMFTRecord(false, false, func(buf []byte, pos int) int {
		pos = writeFileNameAttr(buf, pos, rootDirectoryRef, "secret.txt", 1)
		return writeResidentDataAttr(buf, pos, []byte("hello forensic world"))
	})
	liveFile := buildMFTRecord(true, false, func(buf []byte, pos int) int {
		pos = writeFileNameAttr(buf, pos, rootDirectoryRef, "still-here.txt", 1)
		return writeResidentDataAttr(buf, pos, []byte("not deleted"))
	})

	path := buildImage(t, map[uint64][]byte{
		0: mftRecord,
		2: deletedFile,
		3: liveFile,
	}, 4)

	s := testScanner(t, path, 4*testRecordSize)
	deleted, _, err := s.ScanDeleted()
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	require.Equal(t, "secret.txt", deleted[0].FileName)
	require.True(t, deleted[0].DataResident)
	require.Equal(t, []byte("hello forensic world"), deleted[0].ResidentData)
}

func TestRecoverWritesResidentData(t *testing.T) {
	mftRecord := buildMFTRecord(true, false, func(buf []byte, pos int) int {
		pos = writeFileNameAttr(buf, pos, rootDirectoryRef, "$MFT", 1)
		return writeNonResidentDataAttr(buf, pos, 3*testRecordSize)
	})
	deletedFile := buildMFTRecord(false, false, func(buf []byte, pos int) int {
		pos = writeFileNameAttr(buf, pos, rootDirectoryRef, "note.txt", 1)
		return writeResidentDataAttr(buf, pos, []byte("recovered content"))
	})

	path := buildImage(t, map[uint64][]byte{
		0: mftRecord,
		2: deletedFile,
	}, 3)

	s := testScanner(t, path, 3*testRecordSize)
	deleted, _, err := s.ScanDeleted()
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	fs := afero.NewMemMapFs()
	dest, err := s.Recover(fs, "/out", deleted[0])
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, dest)
	require.NoError(t, err)
	require.Equal(t, "recovered content", string(got))
}
