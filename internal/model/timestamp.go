package model

import (
	"strings"
	"time"
)

// TimeLayout is the canonical local-time representation used for item
// timestamps, stored codes and checkpoints.
const TimeLayout = "2006-01-02 15:04:05"

// SentinelTimestamp substitutes for items without a usable publish date and
// seeds checkpoints of games that were never scanned.
const SentinelTimestamp = "2000-01-01 00:00:00"

// Sentinel returns SentinelTimestamp as a local time.
func Sentinel() time.Time {
	t, _ := time.ParseInLocation(TimeLayout, SentinelTimestamp, time.Local)
	return t
}

// FormatTime renders t in local time using TimeLayout.
// A nil or zero time yields SentinelTimestamp.
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return SentinelTimestamp
	}
	return t.In(time.Local).Format(TimeLayout)
}

// ParseTime parses a TimeLayout string in local time.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.Local)
}
