// Package filetime converts Windows FILETIME values — 100-nanosecond ticks
// since 1601-01-01 00:00:00 UTC, as stored in NTFS $STANDARD_INFORMATION/
// $FILE_NAME timestamps and ReFS directory entries — to and from Go's
// time.Time. Display is always computed relative to UTC and then shifted by
// a caller-supplied offset, rather than relying on the host's local zone,
// so a report generated on one machine reads the same on another.
package filetime

import "time"

// epoch is 1601-01-01 00:00:00 UTC, the FILETIME zero point.
var epoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

const ticksPerSecond = 10_000_000

// epochToUnixSeconds is the number of seconds from the FILETIME epoch to
// the Unix epoch (1970-01-01 00:00:00 UTC).
const epochToUnixSeconds = 11644473600

// Decode converts a raw FILETIME tick count into a UTC time.Time.
func Decode(ticks uint64) time.Time {
	seconds := int64(ticks / ticksPerSecond)
	remainder := int64(ticks % ticksPerSecond)
	return time.Unix(seconds-epochToUnixSeconds, remainder*100).UTC()
}

// Encode converts a UTC time.Time back into a raw FILETIME tick count.
func Encode(t time.Time) uint64 {
	t = t.UTC()
	if t.Before(epoch) {
		return 0
	}
	seconds := uint64(t.Unix() + epochToUnixSeconds)
	return seconds*ticksPerSecond + uint64(t.Nanosecond()/100)
}

// DisplayOffset is a caller-configured minute offset from UTC (for example
// +330 for IST, +540 for KST, 0 for UTC) applied only when rendering a
// FILETIME for human display. It never affects Decode/Encode, which always
// operate in UTC. Minutes, not whole hours, since several real timezones
// (IST, Nepal, Chatham Islands) sit on a half- or quarter-hour boundary.
type DisplayOffset int

// DefaultDisplayOffset renders timestamps in UTC, overridable via
// --tz-offset / DFT_TZ_OFFSET.
const DefaultDisplayOffset DisplayOffset = 0

// Render formats ticks for display, shifted by offset minutes from UTC.
func Render(ticks uint64, offset DisplayOffset) string {
	t := Decode(ticks).Add(time.Duration(offset) * time.Minute)
	return t.Format("2006-01-02 15:04")
}
