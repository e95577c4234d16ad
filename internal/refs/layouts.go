// Package refs implements a read-only ReFS 3.x analyzer: volume boot
// sector and super block parsing, LCN/VCN address translation through the
// Container Table, B+-tree page and index traversal, and a catalog builder
// that walks the Object-ID and Parent-Child tables into a navigable
// directory tree. The structure layouts here follow the original analyzer
// rather than the NTFS-FS-meta-data public documentation, since that
// original is the ground truth this toolkit's ReFS support was distilled
// from; fileMetadataLayout's comment names the fields whose position was
// inferred rather than copied from a Python struct offset.
package refs

import "github.com/yongjin04/diskforensics/internal/binreader"

// vbrLayout covers the ReFS volume boot record's identifying fields.
var vbrLayout = binreader.Layout{
	{Name: "jump_code", Kind: binreader.Raw, Size: 3},
	{Name: "signature", Kind: binreader.Raw, Size: 8}, // "ReFS\0\0\0\0"
	{Name: "unused1", Kind: binreader.Raw, Size: 5},
	{Name: "length", Kind: binreader.U16},
	{Name: "checksum_type", Kind: binreader.U16},
	{Name: "volume_length_sectors", Kind: binreader.U64},
	{Name: "cluster_count", Kind: binreader.U32},
	{Name: "container_size_clusters", Kind: binreader.U32},
	{Name: "bytes_per_sector_shift", Kind: binreader.U8},
	{Name: "bytes_per_cluster_shift", Kind: binreader.U8},
	{Name: "major_version", Kind: binreader.U8},
	{Name: "minor_version", Kind: binreader.U8},
}

// superBlockLayout covers the "SUPB" structure, which exists at a handful
// of fixed locations (cluster 30 on each of the first two containers, and
// mirrored near the volume's end) and names the volume's active checkpoint.
var superBlockLayout = binreader.Layout{
	{Name: "signature", Kind: binreader.Raw, Size: 4}, // "SUPB"
	{Name: "unused1", Kind: binreader.Raw, Size: 12},
	{Name: "self_lcn", Kind: binreader.U64},
	{Name: "unused2", Kind: binreader.Raw, Size: 16},
	{Name: "checkpoint_lcn", Kind: binreader.U64},
	{Name: "checkpoint_lcn_mirror", Kind: binreader.U64},
}

// checkpointLayout covers the "CHKP" structure. The original names a long
// run of reserved fields between the signature and the table-root pointers;
// only the fields this toolkit actually dereferences are named.
var checkpointLayout = binreader.Layout{
	{Name: "signature", Kind: binreader.Raw, Size: 4}, // "CHKP"
	{Name: "unused1", Kind: binreader.Raw, Size: 28},
	{Name: "sequence_number", Kind: binreader.U64},
	{Name: "unused2", Kind: binreader.Raw, Size: 40},
	{Name: "object_id_table_root_lcn", Kind: binreader.U64},
	{Name: "unused3", Kind: binreader.Raw, Size: 8},
	{Name: "container_table_root_lcn", Kind: binreader.U64},
}

// pageHeaderLayout covers the 0x50-byte header common to every "MSB+"
// B+-tree page (Container Table, Object-ID Table, Parent-Child Table,
// Directory Table, File Table index pages).
var pageHeaderLayout = binreader.Layout{
	{Name: "signature", Kind: binreader.Raw, Size: 4}, // "MSB+"
	{Name: "unused1", Kind: binreader.Raw, Size: 12},
	{Name: "self_page_number", Kind: binreader.U64},
	{Name: "unused2", Kind: binreader.Raw, Size: 24},
	{Name: "object_id", Kind: binreader.U64},
}

// indexHeaderLayout is the header of the index region embedded in a page:
// it names where the key-pointer array begins and how much of the page is
// used, relative to the start of this header. Each key-pointer array slot
// is a 4-byte offset (masked to its low 16 bits) to an Index Entry header,
// not the entry itself — decodeIndexEntries dereferences this array rather
// than walking entry headers back-to-back.
var indexHeaderLayout = binreader.Layout{
	{Name: "key_array_offset", Kind: binreader.U32},
	{Name: "used_bytes", Kind: binreader.U32},
	{Name: "total_bytes", Kind: binreader.U32},
	{Name: "unused1", Kind: binreader.U32},
}

// indexEntryLayout is the fixed-size header preceding each index entry's
// variable-length key and value payload.
var indexEntryLayout = binreader.Layout{
	{Name: "entry_length", Kind: binreader.U16},
	{Name: "key_offset", Kind: binreader.U16},
	{Name: "key_length", Kind: binreader.U16},
	{Name: "flags", Kind: binreader.U16},
	{Name: "value_offset", Kind: binreader.U16},
	{Name: "value_length", Kind: binreader.U16},
	{Name: "unused1", Kind: binreader.U32},
}

// containerTableValueLayout covers a Container Table entry's value: the
// physical cluster range backing one container.
var containerTableValueLayout = binreader.Layout{
	{Name: "physical_lcn", Kind: binreader.U64},
	{Name: "checksum_lcn", Kind: binreader.U64},
	{Name: "unused1", Kind: binreader.Raw, Size: 16},
}

// objectIDTableKeyLayout / valueLayout cover the Object-ID Table, mapping
// a 64-bit object id to the page number holding that object's own B+-tree
// root (a directory's listing, or a nested index).
var objectIDTableKeyLayout = binreader.Layout{
	{Name: "object_id", Kind: binreader.U64},
}

var objectIDTableValueLayout = binreader.Layout{
	{Name: "root_page_number", Kind: binreader.U64},
	{Name: "unused1", Kind: binreader.Raw, Size: 8},
}

// parentChildKeyLayout / valueLayout cover the Parent-Child Table, the
// catalog of directory containment edges; RootObjectID is the volume root.
var parentChildKeyLayout = binreader.Layout{
	{Name: "parent_object_id", Kind: binreader.U64},
	{Name: "child_object_id", Kind: binreader.U64},
}

const RootObjectID = 0x600

// directoryEntryKeyTag and fileEntryKeyTag identify, via an index entry's
// leading key tag field, whether that entry describes a subdirectory
// reference or a file's metadata record. These values are taken directly
// from the original analyzer's read_index dispatch rather than from
// spec prose, since the two disagree and the original is the ground truth:
// the original checks 0x80000020 for File Table entries (not 0x10030).
const (
	directoryEntryKeyTag = 0x20030
	fileEntryKeyTag      = 0x80000020
)

// fileMetadataLayout covers a File Table entry's fixed-size metadata
// fields, which precede its variable-length name. first_extent_lcn is the
// starting LCN of the file's first data run (its file_LCN in spec terms),
// appended after object_id the same way every other semantically-derived
// field in this layout was placed by understanding, not by a literal
// Python struct offset (see the directoryEntryKeyTag/fileEntryKeyTag
// comment above for why the original source, not struct layout, is ground
// truth here).
var fileMetadataLayout = binreader.Layout{
	{Name: "creation_time", Kind: binreader.U64},
	{Name: "last_modification_time", Kind: binreader.U64},
	{Name: "last_change_time", Kind: binreader.U64},
	{Name: "last_access_time", Kind: binreader.U64},
	{Name: "file_flags", Kind: binreader.U32},
	{Name: "unused1", Kind: binreader.U32},
	{Name: "file_size", Kind: binreader.U64},
	{Name: "allocated_size", Kind: binreader.U64},
	{Name: "object_id", Kind: binreader.U64},
	{Name: "first_extent_lcn", Kind: binreader.U64},
}

var directoryMetadataLayout = binreader.Layout{
	{Name: "creation_time", Kind: binreader.U64},
	{Name: "last_modification_time", Kind: binreader.U64},
	{Name: "last_change_time", Kind: binreader.U64},
	{Name: "last_access_time", Kind: binreader.U64},
	{Name: "directory_flags", Kind: binreader.U32},
	{Name: "unused1", Kind: binreader.U32},
	{Name: "child_object_id", Kind: binreader.U64},
}
