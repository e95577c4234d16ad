package refs

import (
	"encoding/binary"
	"fmt"
)

// parentChildTableObjectID is the well-known system object id whose
// Object-ID Table entry points at the Parent-Child Table's own B+-tree
// root, the same bootstrap the original analyzer performs before it can
// resolve any directory's containment edges.
const parentChildTableObjectID = 0x20

// Origin records how a directory row was discovered: found directly in its
// parent's own B+-tree page (PageListed), or known only through the
// Parent-Child Table with no corresponding page entry (AdjacencyOnly) — a
// partially recovered tree, rendered as a placeholder row rather than
// silently dropped.
type Origin int

const (
	PageListed Origin = iota
	AdjacencyOnly
)

// DirEntry is one entry inside a directory listing: either a subdirectory
// reference (ChildObjectID non-zero) or a file's metadata.
type DirEntry struct {
	Name          string
	IsDirectory   bool
	ChildObjectID uint64 // valid when IsDirectory
	Size          uint64
	CreatedUTC    uint64 // raw FILETIME ticks; internal/filetime decodes for display
	ModifiedUTC   uint64
	Origin        Origin

	// File-only fields.
	FirstExtentLCN uint64 // starting LCN of the file's first data run
	Signature      string // hex of the 4 bytes at FirstExtentLCN, "" if unreadable
}

// Catalog is the fully resolved ReFS object graph for one volume: every
// object id's B+-tree root page, and the parent/child containment edges
// connecting directories together, rooted at RootObjectID.
type Catalog struct {
	vol            *Volume
	ObjectRoots    map[uint64]uint64 // object id -> root page VCN
	ParentToChild  map[uint64][]uint64
	ContainerCount int
}

// BuildCatalog walks the Object-ID Table and Parent-Child Table, producing
// a Catalog ready for directory listing via Catalog.List.
func BuildCatalog(v *Volume) (*Catalog, error) {
	objectRoots, err := readObjectIDTable(v)
	if err != nil {
		return nil, fmt.Errorf("refs: read object id table: %w", err)
	}

	cat := &Catalog{
		vol:            v,
		ObjectRoots:    objectRoots,
		ParentToChild:  map[uint64][]uint64{},
		ContainerCount: v.Translator.Count(),
	}

	if rootVCN, ok := objectRoots[parentChildTableObjectID]; ok {
		edges, err := readParentChildTable(v, rootVCN)
		if err != nil {
			return nil, fmt.Errorf("refs: read parent-child table: %w", err)
		}
		for _, e := range edges {
			cat.ParentToChild[e.parent] = append(cat.ParentToChild[e.parent], e.child)
		}
	}

	return cat, nil
}

type parentChildEdge struct {
	parent uint64
	child  uint64
}

func readObjectIDTable(v *Volume) (map[uint64]uint64, error) {
	page, err := readPageByVCN(v, v.Checkpoint.ObjectIDTableRootVCN)
	if err != nil {
		return nil, err
	}
	entries, err := decodeIndexEntries(page)
	if err != nil {
		return nil, err
	}

	out := map[uint64]uint64{}
	for _, e := range entries {
		if len(e.Key) < 8 || len(e.Value) < 8 {
			continue
		}
		objectID := leUint64(e.Key[:8])
		rootPageVCN := leUint64(e.Value[:8])
		out[objectID] = rootPageVCN
	}
	return out, nil
}

func readParentChildTable(v *Volume, rootVCN uint64) ([]parentChildEdge, error) {
	page, err := readPageByVCN(v, rootVCN)
	if err != nil {
		return nil, err
	}
	entries, err := decodeIndexEntries(page)
	if err != nil {
		return nil, err
	}

	var edges []parentChildEdge
	for _, e := range entries {
		if len(e.Key) < 16 {
			continue
		}
		edges = append(edges, parentChildEdge{
			parent: leUint64(e.Key[0:8]),
			child:  leUint64(e.Key[8:16]),
		})
	}
	return edges, nil
}

// List returns the directory listing for objectID, dispatching each index
// entry on its key tag (directoryEntryKeyTag vs fileEntryKeyTag), the same
// sum-type dispatch the original analyzer's read_index performs on
// table_type. Directory children named only in the Parent-Child Table but
// absent from the page itself (a partially recovered tree) are unioned in
// as AdjacencyOnly placeholder rows rather than silently dropped.
func (c *Catalog) List(objectID uint64) ([]DirEntry, error) {
	rootVCN, ok := c.ObjectRoots[objectID]
	if !ok {
		return nil, fmt.Errorf("refs: no object-id table entry for object 0x%x", objectID)
	}

	page, err := readPageByVCN(c.vol, rootVCN)
	if err != nil {
		return nil, err
	}
	entries, err := decodeIndexEntries(page)
	if err != nil {
		return nil, err
	}

	var out []DirEntry
	seenChildren := map[uint64]bool{}
	for _, e := range entries {
		if len(e.Key) < 4 {
			continue
		}
		tag := leUint32(e.Key[:4])

		switch tag {
		case directoryEntryKeyTag:
			entry, err := decodeDirectoryEntry(e)
			if err == nil {
				entry.Origin = PageListed
				out = append(out, entry)
				seenChildren[entry.ChildObjectID] = true
			}
		case fileEntryKeyTag:
			entry, err := decodeFileEntry(e)
			if err == nil {
				entry.Origin = PageListed
				entry.Signature = c.signatureAt(entry.FirstExtentLCN)
				out = append(out, entry)
			}
		}
	}

	for _, childID := range c.ParentToChild[objectID] {
		if seenChildren[childID] {
			continue
		}
		out = append(out, DirEntry{
			Name:          fmt.Sprintf("Unknown (Object ID: 0x%x)", childID),
			IsDirectory:   true,
			ChildObjectID: childID,
			Origin:        AdjacencyOnly,
		})
		seenChildren[childID] = true
	}

	return out, nil
}

// signatureAt reads the 4-byte magic number at a file's first extent,
// translating lcn through the volume's address translator the same way a
// page reference is resolved. Returns "" rather than failing the whole
// listing when the extent can't be read (lcn == 0, a sparse file, or an
// address past the image's end).
func (c *Catalog) signatureAt(lcn uint64) string {
	if lcn == 0 {
		return ""
	}
	offset, err := c.vol.Translator.Translate(lcn)
	if err != nil {
		return ""
	}
	buf := make([]byte, 4)
	if _, err := c.vol.vol.ReadAt(buf, offset); err != nil {
		return ""
	}
	return fmt.Sprintf("%08x", binary.BigEndian.Uint32(buf))
}

func decodeDirectoryEntry(e IndexEntry) (DirEntry, error) {
	name := decodeNameFromKey(e.Key)
	rec, err := decodeLayout(directoryMetadataLayout, e.Value)
	if err != nil {
		return DirEntry{}, err
	}
	return DirEntry{
		Name:          name,
		IsDirectory:   true,
		ChildObjectID: rec.U64("child_object_id"),
		CreatedUTC:    rec.U64("creation_time"),
		ModifiedUTC:   rec.U64("last_modification_time"),
	}, nil
}

func decodeFileEntry(e IndexEntry) (DirEntry, error) {
	name := decodeNameFromKey(e.Key)
	rec, err := decodeLayout(fileMetadataLayout, e.Value)
	if err != nil {
		return DirEntry{}, err
	}
	return DirEntry{
		Name:           name,
		IsDirectory:    false,
		Size:           rec.U64("file_size"),
		CreatedUTC:     rec.U64("creation_time"),
		ModifiedUTC:    rec.U64("last_modification_time"),
		FirstExtentLCN: rec.U64("first_extent_lcn"),
	}, nil
}

// decodeNameFromKey extracts the UTF-16LE file/directory name trailing a
// key's fixed tag+reserved prefix (the remaining bytes after the first 8).
func decodeNameFromKey(key []byte) string {
	if len(key) <= 8 {
		return ""
	}
	return decodeUTF16Name(key[8:])
}

func readPageByVCN(v *Volume, vcn uint64) ([]byte, error) {
	offset, err := v.Translator.Translate(vcn)
	if err != nil {
		return nil, err
	}
	return v.readPageAt(offset)
}
