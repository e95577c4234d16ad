package filetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecodeKnownEpoch(t *testing.T) {
	// Ticks for 1970-01-01 00:00:00 UTC (the Unix epoch), a well known
	// published FILETIME constant.
	const unixEpochTicks = 116444736000000000
	got := Decode(unixEpochTicks)
	assert.True(t, got.Equal(time.Unix(0, 0).UTC()), "got %v", got)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := time.Date(2024, time.March, 15, 12, 30, 0, 0, time.UTC)
	ticks := Encode(want)
	got := Decode(ticks)
	assert.WithinDuration(t, want, got, time.Microsecond)
}

func TestEncodeBeforeEpochClampsToZero(t *testing.T) {
	before := time.Date(1500, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, uint64(0), Encode(before))
}

func TestRenderAppliesDisplayOffset(t *testing.T) {
	ticks := Encode(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	utc := Render(ticks, DefaultDisplayOffset)
	shifted := Render(ticks, DisplayOffset(9*60))
	halfHour := Render(ticks, DisplayOffset(5*60+30))
	assert.Equal(t, "2024-03-15 00:00", utc)
	assert.Equal(t, "2024-03-15 09:00", shifted)
	assert.Equal(t, "2024-03-15 05:30", halfHour)
}

func TestRenderMatchesFixedHexTickValueAtUTCPlus9(t *testing.T) {
	// 0x01d9a07c80000000, the tick count the filetime-decode CLI example
	// passes in hex, decodes to 2023-06-16 18:00:56 UTC; at UTC+9 that's
	// 2023-06-17 03:00 with minute-only rendering.
	const ticks = 0x01d9a07c80000000
	assert.Equal(t, "2023-06-17 03:00", Render(ticks, DisplayOffset(9*60)))
}
