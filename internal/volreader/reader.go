// Package volreader provides the single shared cursor every analyzer in
// this module reads a volume image through. Every read is addressed by an
// absolute byte offset; no subsystem is allowed to depend on an implicit
// seek position carried across calls.
package volreader

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// DefaultSectorSize is the sector size assumed until SetSectorSize
	// overrides it.
	DefaultSectorSize = 512
)

// Reader is a read-only, seekable view over a disk image or block device.
type Reader struct {
	file       *os.File
	size       int64
	sectorSize int
}

// Open opens path read-only and determines its size, falling back to an
// end-seek for block devices that report a zero Stat size.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("volreader: open %q: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("volreader: stat %q: %w", path, err)
	}

	size := stat.Size()
	if size == 0 {
		size, err = file.Seek(0, io.SeekEnd)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("volreader: determine size of %q: %w", path, err)
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, fmt.Errorf("volreader: rewind %q: %w", path, err)
		}
	}

	return &Reader{file: file, size: size, sectorSize: DefaultSectorSize}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Size reports the image size in bytes.
func (r *Reader) Size() int64 { return r.size }

// SectorSize reports the sector size this reader assumes for sector-relative
// helpers. It does not change ReadAt, which is always byte-addressed.
func (r *Reader) SectorSize() int { return r.sectorSize }

// SetSectorSize overrides the assumed sector size; a non-positive n is
// ignored. The cmd/ binaries call it with the configured --sector-size.
func (r *Reader) SetSectorSize(n int) {
	if n > 0 {
		r.sectorSize = n
	}
}

// ReadAt reads len(buf) bytes at the given absolute byte offset. It returns
// io.ErrUnexpectedEOF (wrapped) if fewer bytes are available, matching the
// BinaryReader "UnexpectedEnd" contract described in the analyzer spec.
func (r *Reader) ReadAt(buf []byte, offset int64) (int, error) {
	n, err := r.file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("volreader: read at %d: %w", offset, err)
	}
	if n < len(buf) {
		return n, fmt.Errorf("volreader: read at %d: %w (wanted %d, got %d)", offset, io.ErrUnexpectedEOF, len(buf), n)
	}
	return n, nil
}

// ReadSector reads one sector at the given sector index.
func (r *Reader) ReadSector(sector int64) ([]byte, error) {
	return r.ReadSectors(sector, 1)
}

// ReadSectors reads count sectors starting at the given sector index.
func (r *Reader) ReadSectors(startSector int64, count int) ([]byte, error) {
	buf := make([]byte, count*r.sectorSize)
	if _, err := r.ReadAt(buf, startSector*int64(r.sectorSize)); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadCluster reads clusterSize bytes starting at the given absolute byte
// offset (the caller has already resolved the cluster's location, typically
// via ReFS VCN arithmetic or an NTFS run-list entry).
func (r *Reader) ReadCluster(clusterStart int64, clusterSize int) ([]byte, error) {
	buf := make([]byte, clusterSize)
	if _, err := r.ReadAt(buf, clusterStart); err != nil {
		return nil, err
	}
	return buf, nil
}

// DetectFilesystem sniffs the first 4096 bytes of the reader (offset 0) to
// identify a filesystem signature, independent of any MBR partition type
// byte (which can be wrong or ambiguous).
func DetectFilesystem(r *Reader) (string, error) {
	buf := make([]byte, 4096)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return "", err
	}

	if string(buf[3:7]) == "NTFS" {
		return "ntfs", nil
	}
	if string(buf[82:87]) == "FAT32" {
		return "fat32", nil
	}
	if string(buf[54:59]) == "FAT32" {
		return "fat32", nil
	}
	if string(buf[54:58]) == "FAT1" {
		return "fat16", nil
	}

	return "", errors.New("volreader: unrecognized filesystem signature")
}
