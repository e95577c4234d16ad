package refs

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/yongjin04/diskforensics/internal/binreader"
)

func decodeLayout(layout binreader.Layout, buf []byte) (binreader.Record, error) {
	return binreader.New(sliceReaderAt(buf)).Decode(layout)
}

// decodeUTF16Name decodes a UTF-16LE byte span into a string, stopping at
// a null terminator if one is present (ReFS names are length-prefixed by
// their containing key, but some entries pad with trailing zero code
// units).
func decodeUTF16Name(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := binary.LittleEndian.Uint16(b[i : i+2])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}
