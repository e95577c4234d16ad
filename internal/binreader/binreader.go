// Package binreader generalizes the fixed-layout little-endian record
// decoding that both the ReFS and NTFS analyzers need. It is the Go
// equivalent of the Python source's repeated `struct.unpack(format, ...)`
// calls: instead of a format string, a Layout names and sizes each field up
// front, and Decode returns a Record that fields can be pulled from by name.
package binreader

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Kind identifies the width and signedness of one field in a Layout.
type Kind int

const (
	U8 Kind = iota
	U16
	U32
	U64
	I8
	I64
	Raw // fixed-size byte string, stored verbatim
)

// Field is one named, sized element of a Layout.
type Field struct {
	Name string
	Kind Kind
	Size int // only meaningful for Raw; other kinds imply their own width
}

func (f Field) width() int {
	switch f.Kind {
	case U8, I8:
		return 1
	case U16:
		return 2
	case U32:
		return 4
	case U64, I64:
		return 8
	case Raw:
		return f.Size
	default:
		return 0
	}
}

// Layout describes one fixed-width record as an ordered list of fields.
type Layout []Field

// Size returns the total byte width of the layout.
func (l Layout) Size() int {
	n := 0
	for _, f := range l {
		n += f.width()
	}
	return n
}

// Record is the decoded result of applying a Layout to a byte slice.
type Record struct {
	order Layout
	u64   map[string]uint64
	i64   map[string]int64
	raw   map[string][]byte
}

func (r Record) U8(name string) uint8   { return uint8(r.u64[name]) }
func (r Record) U16(name string) uint16 { return uint16(r.u64[name]) }
func (r Record) U32(name string) uint32 { return uint32(r.u64[name]) }
func (r Record) U64(name string) uint64 { return r.u64[name] }
func (r Record) I64(name string) int64  { return r.i64[name] }
func (r Record) Raw(name string) []byte { return r.raw[name] }

// Reader wraps an io.ReaderAt with a current cursor and decodes Layouts from
// it. Seek repositions the cursor; every decode advances it by the number of
// bytes consumed. It implements the "seek + fixed-layout decode" contract:
// every Decode fails with an UnexpectedEnd-shaped error if fewer bytes than
// the layout requires remain.
type Reader struct {
	src    io.ReaderAt
	cursor int64
}

// New wraps src for layout-driven decoding starting at offset 0.
func New(src io.ReaderAt) *Reader {
	return &Reader{src: src}
}

// Seek repositions the cursor to an absolute byte offset.
func (r *Reader) Seek(absolute int64) {
	r.cursor = absolute
}

// Tell reports the current cursor position.
func (r *Reader) Tell() int64 { return r.cursor }

// Advance moves the cursor forward (or backward, for negative n) by n bytes
// without reading, mirroring the source's repeated relative f.seek(n, 1).
func (r *Reader) Advance(n int64) {
	r.cursor += n
}

// Read reads exactly n bytes from the cursor and advances it.
func (r *Reader) Read(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := r.src.ReadAt(buf, r.cursor)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("binreader: read %d bytes at %d: %w", n, r.cursor, err)
	}
	if read < n {
		return nil, fmt.Errorf("binreader: read %d bytes at %d: %w (got %d)", n, r.cursor, io.ErrUnexpectedEOF, read)
	}
	r.cursor += int64(n)
	return buf, nil
}

// Decode reads and decodes one record matching layout at the current
// cursor, advancing the cursor by layout.Size().
func (r *Reader) Decode(layout Layout) (Record, error) {
	buf, err := r.Read(layout.Size())
	if err != nil {
		return Record{}, err
	}
	return decodeBuf(layout, buf), nil
}

// DecodeAt seeks to offset then decodes, a convenience for the
// "seek(absolute); decode(layout)" pattern used throughout the ReFS index
// reader.
func (r *Reader) DecodeAt(offset int64, layout Layout) (Record, error) {
	r.Seek(offset)
	return r.Decode(layout)
}

// DecodeTrailing decodes layout, then reads extraBytes more bytes and
// attaches them to the record under the field name "trailing". This mirrors
// the source's read_struct(), which appends a variable-length UTF-16LE name
// field sized by a count field decoded earlier in the same record (e.g.
// $FILE_NAME's name length, or a ReFS directory name length).
func (r *Reader) DecodeTrailing(layout Layout, extraBytes int) (Record, error) {
	rec, err := r.Decode(layout)
	if err != nil {
		return Record{}, err
	}
	trailing, err := r.Read(extraBytes)
	if err != nil {
		return Record{}, err
	}
	if rec.raw == nil {
		rec.raw = map[string][]byte{}
	}
	rec.raw["trailing"] = trailing
	return rec, nil
}

func decodeBuf(layout Layout, buf []byte) Record {
	rec := Record{
		order: layout,
		u64:   map[string]uint64{},
		i64:   map[string]int64{},
		raw:   map[string][]byte{},
	}

	off := 0
	for _, f := range layout {
		w := f.width()
		chunk := buf[off : off+w]
		switch f.Kind {
		case U8:
			rec.u64[f.Name] = uint64(chunk[0])
		case I8:
			rec.i64[f.Name] = int64(int8(chunk[0]))
		case U16:
			rec.u64[f.Name] = uint64(binary.LittleEndian.Uint16(chunk))
		case U32:
			rec.u64[f.Name] = uint64(binary.LittleEndian.Uint32(chunk))
		case U64:
			rec.u64[f.Name] = binary.LittleEndian.Uint64(chunk)
		case I64:
			rec.i64[f.Name] = int64(binary.LittleEndian.Uint64(chunk))
		case Raw:
			cp := make([]byte, w)
			copy(cp, chunk)
			rec.raw[f.Name] = cp
		}
		off += w
	}

	return rec
}
