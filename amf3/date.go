package amf3

import "time"

// epochMillis converts t to AMF3's wire representation: milliseconds
// since the Unix epoch as a float64 (spec.md §3).
func epochMillis(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

// timeFromEpochMillis reverses epochMillis.
func timeFromEpochMillis(ms float64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}
