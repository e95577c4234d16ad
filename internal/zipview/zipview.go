// Package zipview reads just enough of a ZIP container's structure — the
// End Of Central Directory record, the first Central Directory File
// Header, and the first Local File Header — to give an analyst a quick
// structural look at a recovered .zip/.docx/.xlsx without extracting it.
package zipview

import (
	"bytes"
	"fmt"

	"github.com/yongjin04/diskforensics/internal/binreader"
)

const (
	cdfhSignature = 0x02014b50
	lfhSignature  = 0x04034b50
)

var eocdLayout = binreader.Layout{
	{Name: "signature", Kind: binreader.U32},
	{Name: "disk_number", Kind: binreader.U16},
	{Name: "cd_start_disk", Kind: binreader.U16},
	{Name: "entries_this_disk", Kind: binreader.U16},
	{Name: "entries_total", Kind: binreader.U16},
	{Name: "cd_size", Kind: binreader.U32},
	{Name: "cd_offset", Kind: binreader.U32},
	{Name: "comment_length", Kind: binreader.U16},
}

var centralDirectoryHeaderLayout = binreader.Layout{
	{Name: "signature", Kind: binreader.U32},
	{Name: "version_made_by", Kind: binreader.U16},
	{Name: "version_needed", Kind: binreader.U16},
	{Name: "flags", Kind: binreader.U16},
	{Name: "compression_method", Kind: binreader.U16},
	{Name: "mod_time", Kind: binreader.U16},
	{Name: "mod_date", Kind: binreader.U16},
	{Name: "crc32", Kind: binreader.U32},
	{Name: "compressed_size", Kind: binreader.U32},
	{Name: "uncompressed_size", Kind: binreader.U32},
	{Name: "name_length", Kind: binreader.U16},
	{Name: "extra_length", Kind: binreader.U16},
	{Name: "comment_length", Kind: binreader.U16},
	{Name: "disk_number_start", Kind: binreader.U16},
	{Name: "internal_attrs", Kind: binreader.U16},
	{Name: "external_attrs", Kind: binreader.U32},
	{Name: "local_header_offset", Kind: binreader.U32},
}

var localFileHeaderLayout = binreader.Layout{
	{Name: "signature", Kind: binreader.U32},
	{Name: "version_needed", Kind: binreader.U16},
	{Name: "flags", Kind: binreader.U16},
	{Name: "compression_method", Kind: binreader.U16},
	{Name: "mod_time", Kind: binreader.U16},
	{Name: "mod_date", Kind: binreader.U16},
	{Name: "crc32", Kind: binreader.U32},
	{Name: "compressed_size", Kind: binreader.U32},
	{Name: "uncompressed_size", Kind: binreader.U32},
	{Name: "name_length", Kind: binreader.U16},
	{Name: "extra_length", Kind: binreader.U16},
}

// EOCD is the decoded End Of Central Directory record.
type EOCD struct {
	EntriesTotal     uint16
	CentralDirSize   uint32
	CentralDirOffset uint32
}

// CentralDirectoryEntry is the first Central Directory File Header.
type CentralDirectoryEntry struct {
	Name              string
	CompressedSize    uint32
	UncompressedSize  uint32
	CompressionMethod uint16
	LocalHeaderOffset uint32
}

// LocalFileHeader is the first Local File Header.
type LocalFileHeader struct {
	Name              string
	CompressedSize    uint32
	UncompressedSize  uint32
	CompressionMethod uint16
}

// Summary bundles everything View extracts from one ZIP container.
type Summary struct {
	EOCD             EOCD
	FirstEntry       *CentralDirectoryEntry
	FirstLocalHeader *LocalFileHeader
}

// View reads the structural summary of a ZIP file from a full in-memory
// copy of its bytes (size []byte rather than a reader, since locating the
// EOCD requires searching backward from the end).
func View(data []byte) (*Summary, error) {
	eocdOffset, err := findEOCD(data)
	if err != nil {
		return nil, err
	}

	br := binreader.New(bytes.NewReader(data))
	br.Seek(int64(eocdOffset))
	eocdRec, err := br.Decode(eocdLayout)
	if err != nil {
		return nil, fmt.Errorf("zipview: decode EOCD: %w", err)
	}
	if eocdRec.U32("signature") != 0x06054b50 {
		return nil, fmt.Errorf("zipview: EOCD signature mismatch at offset %d", eocdOffset)
	}

	summary := &Summary{
		EOCD: EOCD{
			EntriesTotal:     eocdRec.U16("entries_total"),
			CentralDirSize:   eocdRec.U32("cd_size"),
			CentralDirOffset: eocdRec.U32("cd_offset"),
		},
	}

	if eocdRec.U16("entries_total") == 0 {
		return summary, nil
	}

	br.Seek(int64(eocdRec.U32("cd_offset")))
	cdRec, err := br.Decode(centralDirectoryHeaderLayout)
	if err != nil {
		return nil, fmt.Errorf("zipview: decode central directory header: %w", err)
	}
	if cdRec.U32("signature") != cdfhSignature {
		return nil, fmt.Errorf("zipview: central directory header missing signature at %d", eocdRec.U32("cd_offset"))
	}
	nameLen := int(cdRec.U16("name_length"))
	nameBytes, err := br.Read(nameLen)
	if err != nil {
		return nil, fmt.Errorf("zipview: read central directory file name: %w", err)
	}

	entry := &CentralDirectoryEntry{
		Name:              string(nameBytes),
		CompressedSize:    cdRec.U32("compressed_size"),
		UncompressedSize:  cdRec.U32("uncompressed_size"),
		CompressionMethod: cdRec.U16("compression_method"),
		LocalHeaderOffset: cdRec.U32("local_header_offset"),
	}
	summary.FirstEntry = entry

	br.Seek(int64(entry.LocalHeaderOffset))
	lfhRec, err := br.Decode(localFileHeaderLayout)
	if err != nil {
		return summary, fmt.Errorf("zipview: decode local file header: %w", err)
	}
	if lfhRec.U32("signature") != lfhSignature {
		return summary, fmt.Errorf("zipview: local file header missing signature at %d", entry.LocalHeaderOffset)
	}
	lfhName, err := br.Read(int(lfhRec.U16("name_length")))
	if err != nil {
		return summary, fmt.Errorf("zipview: read local file header name: %w", err)
	}

	summary.FirstLocalHeader = &LocalFileHeader{
		Name:              string(lfhName),
		CompressedSize:    lfhRec.U32("compressed_size"),
		UncompressedSize:  lfhRec.U32("uncompressed_size"),
		CompressionMethod: lfhRec.U16("compression_method"),
	}

	return summary, nil
}

// findEOCD searches backward from the end of data for the EOCD signature,
// matching the original's backward scan for "50 4B 05 06".
func findEOCD(data []byte) (int, error) {
	searchStart := len(data) - 22 - 65535
	if searchStart < 0 {
		searchStart = 0
	}

	sig := []byte{0x50, 0x4b, 0x05, 0x06}
	for i := len(data) - 22; i >= searchStart; i-- {
		if bytes.Equal(data[i:i+4], sig) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("zipview: End Of Central Directory record not found")
}
