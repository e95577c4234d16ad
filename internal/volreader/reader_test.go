package volreader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpenReportsSizeAndDefaultSectorSize(t *testing.T) {
	data := make([]byte, 1024*1024)
	for i := range data {
		data[i] = byte(i % 256)
	}
	path := writeTestFile(t, data)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(len(data)), r.Size())
	assert.Equal(t, DefaultSectorSize, r.SectorSize())
}

func TestSetSectorSizeOverridesDefault(t *testing.T) {
	r, err := Open(writeTestFile(t, make([]byte, 512)))
	require.NoError(t, err)
	defer r.Close()

	r.SetSectorSize(4096)
	assert.Equal(t, 4096, r.SectorSize())

	r.SetSectorSize(0)
	assert.Equal(t, 4096, r.SectorSize(), "a non-positive size must not overwrite the previous value")
}

func TestReadAtReadsArbitraryOffsets(t *testing.T) {
	path := writeTestFile(t, []byte("Hello, World! This is a test file for volume reader."))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, 5)
	_, err = r.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(buf))

	_, err = r.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, "World", string(buf))
}

func TestReadAtShortReadIsUnexpectedEOF(t *testing.T) {
	r, err := Open(writeTestFile(t, []byte("short")))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadAt(make([]byte, 64), 0)
	assert.Error(t, err)
}

func TestReadSectorsReadsConsecutiveSectors(t *testing.T) {
	sector0 := make([]byte, DefaultSectorSize)
	sector1 := make([]byte, DefaultSectorSize)
	for i := range sector0 {
		sector0[i] = 0xAA
	}
	for i := range sector1 {
		sector1[i] = 0xBB
	}
	path := writeTestFile(t, append(sector0, sector1...))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadSector(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAA), data[0])
	assert.Equal(t, byte(0xAA), data[DefaultSectorSize-1])

	data, err = r.ReadSector(1)
	require.NoError(t, err)
	assert.Equal(t, byte(0xBB), data[0])
	assert.Equal(t, byte(0xBB), data[DefaultSectorSize-1])
}

func TestReadClusterReadsAtAbsoluteOffset(t *testing.T) {
	data := make([]byte, 8192)
	for i := 4096; i < 8192; i++ {
		data[i] = 0xCC
	}
	path := writeTestFile(t, data)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	cluster, err := r.ReadCluster(4096, 4096)
	require.NoError(t, err)
	assert.Equal(t, byte(0xCC), cluster[0])
	assert.Equal(t, byte(0xCC), cluster[4095])
}

func TestDetectFilesystem(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
		wantErr  bool
	}{
		{
			name: "NTFS",
			data: func() []byte {
				buf := make([]byte, 4096)
				copy(buf[3:7], "NTFS")
				return buf
			}(),
			expected: "ntfs",
		},
		{
			name: "FAT32 at offset 82",
			data: func() []byte {
				buf := make([]byte, 4096)
				copy(buf[82:87], "FAT32")
				return buf
			}(),
			expected: "fat32",
		},
		{
			name: "FAT32 at offset 54",
			data: func() []byte {
				buf := make([]byte, 4096)
				copy(buf[54:59], "FAT32")
				return buf
			}(),
			expected: "fat32",
		},
		{
			name: "FAT16 at offset 54",
			data: func() []byte {
				buf := make([]byte, 4096)
				copy(buf[54:58], "FAT1")
				return buf
			}(),
			expected: "fat16",
		},
		{
			name:    "unrecognized",
			data:    make([]byte, 4096),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Open(writeTestFile(t, tt.data))
			require.NoError(t, err)
			defer r.Close()

			fs, err := DetectFilesystem(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fs)
		})
	}
}
