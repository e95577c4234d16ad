// Package runlist decodes NTFS/ReFS data-run lists: the variable-width
// nibble-prefixed encoding both filesystems use to describe a non-resident
// attribute's cluster allocation as a sequence of (length, offset) pairs.
//
// Divergence from real NTFS semantics: on-disk NTFS treats each run's offset
// as a signed delta from the previous run's ending LCN (so fragmented files
// chain forward and backward). This package instead treats Offset as an
// absolute, unsigned cluster number, matching the original source's
// read_runlist/extract_file_data behavior rather than the NTFS specification.
// A caller porting this to genuinely fragmented, multi-run files will need
// to add delta accumulation; single-run and sparse cases are unaffected.
package runlist

import (
	"encoding/binary"
	"fmt"
)

// Run is one decoded (length, offset) pair from a run list.
type Run struct {
	Length uint64 // allocation length, in clusters
	Offset uint64 // absolute cluster number; zero for a sparse run
	Sparse bool
}

// Decode reads a run list starting at buf[0], stopping at a 0x00 or 0xFF
// terminator byte or the end of buf. It returns the decoded runs and the
// number of bytes consumed, including the terminator if one was found.
func Decode(buf []byte) ([]Run, int, error) {
	var runs []Run
	pos := 0

	for pos < len(buf) {
		header := buf[pos]
		if header == 0x00 || header == 0xFF {
			pos++
			return runs, pos, nil
		}

		lengthSize := int(header & 0x0F)
		offsetSize := int(header>>4) & 0x0F
		pos++

		if pos+lengthSize+offsetSize > len(buf) {
			return nil, pos, fmt.Errorf("runlist: truncated run header at byte %d (need %d more bytes, have %d)",
				pos, lengthSize+offsetSize, len(buf)-pos)
		}

		length, err := readUintLE(buf[pos : pos+lengthSize])
		if err != nil {
			return nil, pos, fmt.Errorf("runlist: decode length field: %w", err)
		}
		pos += lengthSize

		run := Run{Length: length}
		if offsetSize == 0 {
			run.Sparse = true
		} else {
			offset, err := readUintLE(buf[pos : pos+offsetSize])
			if err != nil {
				return nil, pos, fmt.Errorf("runlist: decode offset field: %w", err)
			}
			run.Offset = offset
		}
		pos += offsetSize

		runs = append(runs, run)
	}

	return runs, pos, nil
}

// TotalClusters sums the allocation length of every run, sparse or not.
func TotalClusters(runs []Run) uint64 {
	var total uint64
	for _, r := range runs {
		total += r.Length
	}
	return total
}

func readUintLE(b []byte) (uint64, error) {
	if len(b) == 0 || len(b) > 8 {
		return 0, fmt.Errorf("unsupported field width %d", len(b))
	}
	var padded [8]byte
	copy(padded[:len(b)], b)
	return binary.LittleEndian.Uint64(padded[:]), nil
}
