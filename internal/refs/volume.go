package refs

import (
	"fmt"

	"github.com/yongjin04/diskforensics/internal/binreader"
	"github.com/yongjin04/diskforensics/internal/ferr"
	"github.com/yongjin04/diskforensics/internal/volreader"
)

const pageHeaderSize = 0x50

// VBR is the decoded ReFS volume boot record.
type VBR struct {
	MajorVersion         uint8
	MinorVersion         uint8
	BytesPerSector       int
	BytesPerCluster      int
	ClusterCount         uint32
	ContainerSizeClusters uint32
}

// Volume is an open ReFS volume: the underlying reader, its boot record,
// and the address translator built from its Container Table. It is the
// unit every catalog and navigation operation is built against.
type Volume struct {
	vol        *volreader.Reader
	baseOffset int64 // byte offset of this volume's start on the underlying image
	VBR        VBR
	Checkpoint Checkpoint
	Translator *AddressTranslator
}

// Checkpoint is the decoded active "CHKP" structure.
type Checkpoint struct {
	SequenceNumber       uint64
	ObjectIDTableRootVCN uint64
	ContainerTableRootLCN uint64
}

// Open reads the VBR, locates the active Super Block and Checkpoint, and
// builds the Container Table address translator for the ReFS volume
// starting at baseOffset on vol.
func Open(vol *volreader.Reader, baseOffset int64) (*Volume, error) {
	vbr, err := readVBR(vol, baseOffset)
	if err != nil {
		return nil, err
	}

	v := &Volume{vol: vol, baseOffset: baseOffset, VBR: vbr}

	superBlock, err := v.readSuperBlock()
	if err != nil {
		return nil, err
	}

	checkpoint, err := v.readCheckpoint(superBlock.CheckpointLCN)
	if err != nil {
		return nil, err
	}
	v.Checkpoint = checkpoint

	translator := NewAddressTranslator(vbr.BytesPerCluster, vbr.ContainerSizeClusters)
	v.Translator = translator
	if err := v.readContainerTable(translator, checkpoint.ContainerTableRootLCN); err != nil {
		return nil, err
	}

	return v, nil
}

func readVBR(vol *volreader.Reader, baseOffset int64) (VBR, error) {
	br := binreader.New(vol)
	br.Seek(baseOffset)
	rec, err := br.Decode(vbrLayout)
	if err != nil {
		return VBR{}, fmt.Errorf("refs: decode VBR: %w", err)
	}

	if string(rec.Raw("signature")[:4]) != "ReFS" {
		return VBR{}, ferr.NewFormatError(ferr.BadSignature, baseOffset, "volume boot record missing ReFS signature", nil)
	}

	major := uint8(rec.U8("major_version"))
	if major != 3 {
		return VBR{}, ferr.NewFormatError(ferr.WrongVersion, baseOffset, fmt.Sprintf("ReFS major version %d is not supported (only 3.x)", major), nil)
	}

	return VBR{
		MajorVersion:          major,
		MinorVersion:          uint8(rec.U8("minor_version")),
		BytesPerSector:        1 << rec.U8("bytes_per_sector_shift"),
		BytesPerCluster:       1 << rec.U8("bytes_per_cluster_shift"),
		ClusterCount:          uint32(rec.U32("cluster_count")),
		ContainerSizeClusters: uint32(rec.U32("container_size_clusters")),
	}, nil
}

type superBlock struct {
	CheckpointLCN uint64
}

// readSuperBlock reads the primary Super Block at cluster 30 (the
// well-known fixed location every ReFS 3.x volume keeps its first "SUPB"
// at). A primary copy that fails its signature check is a BadSignature
// FormatError; no mirror copy is tried.
func (v *Volume) readSuperBlock() (superBlock, error) {
	const superBlockCluster = 30
	offset := v.baseOffset + int64(superBlockCluster)*int64(v.VBR.BytesPerCluster)

	br := binreader.New(v.vol)
	br.Seek(offset)
	rec, err := br.Decode(superBlockLayout)
	if err != nil {
		return superBlock{}, fmt.Errorf("refs: decode super block: %w", err)
	}
	if string(rec.Raw("signature")[:4]) != "SUPB" {
		return superBlock{}, ferr.NewFormatError(ferr.BadSignature, offset, "super block missing SUPB signature", nil)
	}

	return superBlock{CheckpointLCN: rec.U64("checkpoint_lcn")}, nil
}

func (v *Volume) readCheckpoint(lcn uint64) (Checkpoint, error) {
	offset := v.baseOffset + int64(lcn)*int64(v.VBR.BytesPerCluster)

	br := binreader.New(v.vol)
	br.Seek(offset)
	rec, err := br.Decode(checkpointLayout)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("refs: decode checkpoint: %w", err)
	}
	if string(rec.Raw("signature")[:4]) != "CHKP" {
		return Checkpoint{}, ferr.NewFormatError(ferr.BadSignature, offset, "checkpoint missing CHKP signature", nil)
	}

	return Checkpoint{
		SequenceNumber:        rec.U64("sequence_number"),
		ObjectIDTableRootVCN:  rec.U64("object_id_table_root_lcn"),
		ContainerTableRootLCN: rec.U64("container_table_root_lcn"),
	}, nil
}

// readContainerTable walks the Container Table's root page (addressed
// directly by LCN, since the Container Table is what makes every other
// VCN-addressed structure resolvable in the first place) and populates
// translator with every container's physical base LCN.
func (v *Volume) readContainerTable(translator *AddressTranslator, rootLCN uint64) error {
	offset := v.baseOffset + int64(rootLCN)*int64(v.VBR.BytesPerCluster)

	page, err := v.readPageAt(offset)
	if err != nil {
		return fmt.Errorf("refs: read container table root page: %w", err)
	}

	entries, err := decodeIndexEntries(page)
	if err != nil {
		return fmt.Errorf("refs: decode container table entries: %w", err)
	}

	for _, e := range entries {
		if len(e.Key) < 8 || len(e.Value) < 8 {
			continue
		}
		containerIndex := leUint64(e.Key[:8])
		baseLCN := leUint64(e.Value[:8])
		translator.AddContainer(containerIndex, baseLCN)
	}

	return nil
}

// readPageAt reads one full page (header + index region) at an absolute
// byte offset, verifying its "MSB+" signature.
func (v *Volume) readPageAt(offset int64) ([]byte, error) {
	const pageSize = 16 * 1024 // ReFS's default page size
	buf := make([]byte, pageSize)
	if _, err := v.vol.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	if string(buf[0:4]) != "MSB+" {
		return nil, ferr.NewFormatError(ferr.BadSignature, offset, "page missing MSB+ signature", nil)
	}
	return buf, nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func leUint32(b []byte) uint32 {
	var v uint32
	for i := 3; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}
