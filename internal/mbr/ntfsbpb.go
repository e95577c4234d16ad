package mbr

import (
	"fmt"

	"github.com/yongjin04/diskforensics/internal/binreader"
	"github.com/yongjin04/diskforensics/internal/volreader"
)

var ntfsBPBLayout = binreader.Layout{
	{Name: "jump_code", Kind: binreader.Raw, Size: 3},
	{Name: "oem_id", Kind: binreader.Raw, Size: 8},
	{Name: "bytes_per_sector", Kind: binreader.U16},
	{Name: "sectors_per_cluster", Kind: binreader.U8},
	{Name: "reserved_sectors", Kind: binreader.U16},
	{Name: "zero1", Kind: binreader.Raw, Size: 5},
	{Name: "media_descriptor", Kind: binreader.U8},
	{Name: "zero2", Kind: binreader.Raw, Size: 2},
	{Name: "sectors_per_track", Kind: binreader.U16},
	{Name: "number_of_heads", Kind: binreader.U16},
	{Name: "hidden_sectors", Kind: binreader.U32},
	{Name: "zero3", Kind: binreader.Raw, Size: 4},
	{Name: "unused", Kind: binreader.Raw, Size: 4},
	{Name: "total_sectors", Kind: binreader.U64},
	{Name: "mft_cluster", Kind: binreader.U64},
	{Name: "mft_mirr_cluster", Kind: binreader.U64},
	{Name: "clusters_per_mft_record", Kind: binreader.I8},
	{Name: "unused2", Kind: binreader.Raw, Size: 3},
	{Name: "clusters_per_index_block", Kind: binreader.I8},
	{Name: "unused3", Kind: binreader.Raw, Size: 3},
	{Name: "volume_serial", Kind: binreader.U64},
}

// NTFSBPB is the decoded BIOS Parameter Block of an NTFS boot sector.
type NTFSBPB struct {
	OEMID              string
	BytesPerSector     uint16
	SectorsPerCluster  uint8
	TotalSectors       uint64
	MFTCluster         uint64
	MFTMirrCluster     uint64
	MFTRecordSize      int // bytes, derived from the signed clusters-per-record field
	IndexBlockSize     int
	VolumeSerialNumber uint64
}

// ClusterSize reports the volume's cluster size in bytes.
func (b NTFSBPB) ClusterSize() int {
	return int(b.BytesPerSector) * int(b.SectorsPerCluster)
}

// ReadNTFSBPB reads and decodes the NTFS boot sector starting at
// partitionByteOffset (the absolute byte offset of the partition that a
// type-0x07 MBR entry pointed to).
func ReadNTFSBPB(r *volreader.Reader, partitionByteOffset int64) (*NTFSBPB, error) {
	buf := make([]byte, volreader.DefaultSectorSize)
	if _, err := r.ReadAt(buf, partitionByteOffset); err != nil {
		return nil, fmt.Errorf("mbr: read NTFS boot sector at %d: %w", partitionByteOffset, err)
	}

	if string(buf[3:7]) != "NTFS" {
		return nil, fmt.Errorf("mbr: partition at %d is not NTFS (OEM ID %q)", partitionByteOffset, buf[3:11])
	}

	br := binreader.New(sliceReaderAt(buf))
	rec, err := br.Decode(ntfsBPBLayout)
	if err != nil {
		return nil, fmt.Errorf("mbr: decode NTFS BPB at %d: %w", partitionByteOffset, err)
	}

	recordSize := clusterRecordSize(rec.I64("clusters_per_mft_record"), int(rec.U16("bytes_per_sector"))*int(rec.U8("sectors_per_cluster")))
	indexSize := clusterRecordSize(rec.I64("clusters_per_index_block"), int(rec.U16("bytes_per_sector"))*int(rec.U8("sectors_per_cluster")))

	return &NTFSBPB{
		OEMID:              string(rec.Raw("oem_id")),
		BytesPerSector:     rec.U16("bytes_per_sector"),
		SectorsPerCluster:  uint8(rec.U8("sectors_per_cluster")),
		TotalSectors:       rec.U64("total_sectors"),
		MFTCluster:         rec.U64("mft_cluster"),
		MFTMirrCluster:     rec.U64("mft_mirr_cluster"),
		MFTRecordSize:      recordSize,
		IndexBlockSize:     indexSize,
		VolumeSerialNumber: rec.U64("volume_serial"),
	}, nil
}

// clusterRecordSize resolves NTFS's signed "clusters per record" convention:
// a positive value n means n clusters; a negative value -n means 2^n bytes,
// independent of cluster size.
func clusterRecordSize(signed int64, clusterSize int) int {
	if signed > 0 {
		return int(signed) * clusterSize
	}
	return 1 << uint(-signed)
}
