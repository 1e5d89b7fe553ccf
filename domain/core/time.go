package core

import (
	"time"
)

// MinuteMs is the fixed reconstruction step.
const MinuteMs int64 = 60_000

// SecondsCutoff separates epoch-seconds tokens from epoch-milliseconds tokens.
// Numeric tokens with a magnitude above it are taken as milliseconds.
const SecondsCutoff = 10_000

// Millis is a timestamp in milliseconds since the Unix epoch.
type Millis int64

// NewMillis converts a time.Time
func NewMillis(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

// Time returns the UTC time.Time
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}

// Int64 returns the raw value
func (m Millis) Int64() int64 {
	return int64(m)
}

// TruncateMinute rounds down to the enclosing minute boundary.
func (m Millis) TruncateMinute() Millis {
	v := int64(m)
	r := v % MinuteMs
	if r < 0 {
		r += MinuteMs
	}
	return Millis(v - r)
}

// String formats as RFC3339 with milliseconds
func (m Millis) String() string {
	return m.Time().Format("2006-01-02T15:04:05.000Z07:00")
}

// MinutesBetween returns the number of whole minutes from start to end,
// truncated toward zero. It does not overflow for any pair of int64 values.
func MinutesBetween(start, end int64) int64 {
	if end >= start {
		return int64(uint64(end-start) / uint64(MinuteMs))
	}
	return -int64(uint64(start-end) / uint64(MinuteMs))
}
