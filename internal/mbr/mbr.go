// Package mbr reads the classic MBR partition table and, for any NTFS
// partition it finds, the NTFS BIOS Parameter Block inside its boot
// sector. Extended partitions (type 0x05/0x0F) are followed transparently,
// flattening the logical-drive chain into one ordered partition list.
package mbr

import (
	"fmt"

	"github.com/yongjin04/diskforensics/internal/binreader"
	"github.com/yongjin04/diskforensics/internal/volreader"
)

const (
	partitionTableOffset = 446
	partitionEntrySize    = 16
	bootSignatureOffset   = 510
	extendedPartitionType = 0x05
	extendedLBAType       = 0x0F
)

var partitionEntryLayout = binreader.Layout{
	{Name: "boot_indicator", Kind: binreader.U8},
	{Name: "start_chs", Kind: binreader.Raw, Size: 3},
	{Name: "partition_type", Kind: binreader.U8},
	{Name: "end_chs", Kind: binreader.Raw, Size: 3},
	{Name: "start_lba", Kind: binreader.U32},
	{Name: "size_sectors", Kind: binreader.U32},
}

// Partition is one flattened partition table entry, primary or logical.
type Partition struct {
	Bootable    bool
	Type        byte
	TypeName    string
	StartLBA    uint32
	SizeSectors uint32
	// ByteOffset is StartLBA converted to an absolute byte offset using the
	// volume's sector size, ready to feed into volreader.Reader.ReadAt.
	ByteOffset int64
}

// TypeName maps an MBR partition type byte to a human-readable label. Only
// the types this toolkit recognizes (NTFS, FAT32, extended) are named in
// full; everything else is reported by its hex value.
func TypeName(t byte) string {
	switch t {
	case 0x00:
		return "empty"
	case 0x05, 0x0F:
		return "extended"
	case 0x07:
		return "ntfs-or-exfat"
	case 0x0B:
		return "fat32-chs"
	case 0x0C:
		return "fat32-lba"
	default:
		return fmt.Sprintf("type 0x%02x", t)
	}
}

// ReadPartitionTable reads the primary partition table at sector 0 and
// follows any extended partition chain, returning every partition: the
// primary entries in table order, followed by the logical drives of each
// extended partition in chain order.
func ReadPartitionTable(r *volreader.Reader) ([]Partition, error) {
	sectorSize := int64(r.SectorSize())

	primary, err := readTableAt(r, 0)
	if err != nil {
		return nil, err
	}

	var out []Partition
	for _, p := range primary {
		out = append(out, toPartition(p, 0, sectorSize))
	}

	for _, p := range primary {
		if p.U8("partition_type") == extendedPartitionType || p.U8("partition_type") == extendedLBAType {
			logical, err := readExtendedChain(r, int64(p.U32("start_lba")), sectorSize)
			if err != nil {
				return nil, err
			}
			out = append(out, logical...)
		}
	}

	return out, nil
}

// readExtendedChain walks logical drives inside an extended partition.
// ebrSector is the sector of the current Extended Boot Record, against
// which that record's entry's start_lba is relative. Each EBR contributes
// exactly one partition entry, read at the fixed offset 446 like the
// primary table, the same single sequential continue-scan MBR_parser.py
// performs: that reader never looks past the first entry of a sector, and
// chains forward only by reusing that one entry's own start_lba
// ("current_sector += fields[4]") when its type is 0x05/0x0F, rather than
// dereferencing a second table slot.
func readExtendedChain(r *volreader.Reader, ebrSector, sectorSize int64) ([]Partition, error) {
	entry, ok, err := readFirstEntryAt(r, ebrSector)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	out := []Partition{toPartition(entry, ebrSector, sectorSize)}

	ptype := entry.U8("partition_type")
	if ptype == extendedPartitionType || ptype == extendedLBAType {
		nextEBR := ebrSector + int64(entry.U32("start_lba"))
		rest, err := readExtendedChain(r, nextEBR, sectorSize)
		if err != nil {
			return nil, err
		}
		out = append(out, rest...)
	}

	return out, nil
}

// readFirstEntryAt decodes only the partition entry at offset 446 of
// sector, the same single slot MBR_parser.py's read loop ever looks at. A
// partition_type of 0x00 reports ok=false, ending the chain the way the
// original treats an all-zero entry as end-of-table.
func readFirstEntryAt(r *volreader.Reader, sector int64) (binreader.Record, bool, error) {
	buf, err := r.ReadSector(sector)
	if err != nil {
		return binreader.Record{}, false, fmt.Errorf("mbr: read sector %d: %w", sector, err)
	}

	br := binreader.New(sliceReaderAt(buf))
	br.Seek(int64(partitionTableOffset))
	rec, err := br.Decode(partitionEntryLayout)
	if err != nil {
		return binreader.Record{}, false, fmt.Errorf("mbr: decode partition entry 0 at sector %d: %w", sector, err)
	}
	if rec.U8("partition_type") == 0x00 {
		return binreader.Record{}, false, nil
	}
	return rec, true, nil
}

func readTableAt(r *volreader.Reader, sector int64) ([]binreader.Record, error) {
	buf, err := r.ReadSector(sector)
	if err != nil {
		return nil, fmt.Errorf("mbr: read sector %d: %w", sector, err)
	}

	br := binreader.New(sliceReaderAt(buf))
	var entries []binreader.Record
	for i := 0; i < 4; i++ {
		br.Seek(int64(partitionTableOffset + i*partitionEntrySize))
		rec, err := br.Decode(partitionEntryLayout)
		if err != nil {
			return nil, fmt.Errorf("mbr: decode partition entry %d at sector %d: %w", i, sector, err)
		}
		if rec.U8("partition_type") == 0x00 {
			continue
		}
		entries = append(entries, rec)
	}
	return entries, nil
}

func toPartition(rec binreader.Record, relativeSector, sectorSize int64) Partition {
	ptype := rec.U8("partition_type")
	startLBA := rec.U32("start_lba")
	return Partition{
		Bootable:    rec.U8("boot_indicator") == 0x80,
		Type:        ptype,
		TypeName:    TypeName(ptype),
		StartLBA:    startLBA,
		SizeSectors: rec.U32("size_sectors"),
		ByteOffset:  (relativeSector + int64(startLBA)) * sectorSize,
	}
}

// sliceReaderAt adapts a byte slice to io.ReaderAt for binreader.New.
type sliceReaderAt []byte

func (s sliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(s)) {
		return 0, fmt.Errorf("mbr: offset %d out of range", off)
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, fmt.Errorf("mbr: short read at %d", off)
	}
	return n, nil
}
