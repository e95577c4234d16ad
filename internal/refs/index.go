package refs

import (
	"encoding/binary"
	"fmt"

	"github.com/yongjin04/diskforensics/internal/binreader"
)

// IndexEntry is one decoded entry from a B+-tree page's index region: the
// raw key and value byte spans, left for the caller to interpret according
// to the table kind being walked (Container Table, Object-ID Table,
// Parent-Child Table, Directory Table, File Table all share this same
// index-entry envelope but give different meaning to Key/Value).
type IndexEntry struct {
	Key   []byte
	Value []byte
}

// decodeIndexEntries walks every entry in a page's index region. The region
// starts immediately after the fixed page header with an indexHeaderLayout
// naming where the key-pointer array sits and how much of the page is in
// use; the array itself holds one 4-byte pointer per entry (masked to its
// low 16 bits, as the original analyzer's read_index does), each pointing
// at the actual Index Entry header, relative to the index header's own
// start, which in turn names its key/value byte spans. This extra
// indirection (array of pointers, not a flat run of entries) is the real
// on-disk layout; a flat linear scan over entry headers happens to produce
// the same result only when every pointer already sits in entry order.
func decodeIndexEntries(page []byte) ([]IndexEntry, error) {
	br := binreader.New(sliceReaderAt(page))
	_, err := br.Decode(pageHeaderLayout)
	if err != nil {
		return nil, fmt.Errorf("refs: decode page header: %w", err)
	}

	indexHeaderStart := int64(pageHeaderSize)
	ih, err := br.DecodeAt(indexHeaderStart, indexHeaderLayout)
	if err != nil {
		return nil, fmt.Errorf("refs: decode index header: %w", err)
	}

	keyArrayStart := indexHeaderStart + int64(ih.U32("key_array_offset"))
	keyArrayEnd := indexHeaderStart + int64(ih.U32("used_bytes"))
	if keyArrayEnd > int64(len(page)) {
		keyArrayEnd = int64(len(page))
	}

	var entries []IndexEntry
	for keyPos := keyArrayStart; keyPos+4 <= keyArrayEnd; keyPos += 4 {
		if keyPos < 0 || keyPos+4 > int64(len(page)) {
			break
		}
		pointer := binary.LittleEndian.Uint32(page[keyPos : keyPos+4])
		entryPos := indexHeaderStart + int64(pointer&0xFFFF)
		if entryPos < 0 || entryPos+int64(indexEntryLayout.Size()) > int64(len(page)) {
			continue
		}

		br.Seek(entryPos)
		hdr, err := br.Decode(indexEntryLayout)
		if err != nil {
			continue
		}
		entryLength := int64(hdr.U16("entry_length"))
		if entryLength <= 0 {
			continue
		}

		keyOff := entryPos + int64(hdr.U16("key_offset"))
		keyLen := int64(hdr.U16("key_length"))
		valOff := entryPos + int64(hdr.U16("value_offset"))
		valLen := int64(hdr.U16("value_length"))

		if keyOff >= 0 && valOff >= 0 && keyOff+keyLen <= int64(len(page)) && valOff+valLen <= int64(len(page)) {
			entries = append(entries, IndexEntry{
				Key:   page[keyOff : keyOff+keyLen],
				Value: page[valOff : valOff+valLen],
			})
		}
	}

	return entries, nil
}

// sliceReaderAt adapts a byte slice to io.ReaderAt.
type sliceReaderAt []byte

func (s sliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(s)) {
		return 0, fmt.Errorf("refs: offset %d out of range", off)
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, fmt.Errorf("refs: short read at %d", off)
	}
	return n, nil
}
