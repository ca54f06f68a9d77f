package util

import (
	"strconv"
	"time"
)

// DateKey formats t as YYYYMMDD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("20060102")
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// HoursUntil converts an optional hour count into an absolute deadline.
func HoursUntil(from time.Time, hours *float64) *time.Time {
	if hours == nil || *hours <= 0 {
		return nil
	}
	t := from.Add(time.Duration(*hours * float64(time.Hour)))
	return &t
}
