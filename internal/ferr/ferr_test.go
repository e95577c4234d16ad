package ferr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("short read")
	err := NewFormatError(BadSignature, 512, "MFT entry missing FILE signature", cause)

	var fe *FormatError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, BadSignature, fe.Kind)
	assert.True(t, errors.Is(err, cause))
}

func TestDecodeWarningFormatsEntryAndOffset(t *testing.T) {
	w := DecodeWarning{Kind: MalformedAttribute, Offset: 1024, Entry: 42, Reason: "non-resident $FILE_NAME"}
	assert.Contains(t, w.Error(), "entry=42")
	assert.Contains(t, w.Error(), "offset=1024")
}

func TestKindStringUnknownDefault(t *testing.T) {
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestIoErrorUnwraps(t *testing.T) {
	cause := errors.New("device gone")
	err := &IoError{Offset: 0, Err: cause}
	assert.True(t, errors.Is(err, cause))
}
