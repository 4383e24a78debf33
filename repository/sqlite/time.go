package sqlite

import "time"

// Timestamps are stored as integer nanoseconds so ordering keeps sub-second
// precision.

func encodeTime(t time.Time) int64 {
	return t.UnixNano()
}

func decodeTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
