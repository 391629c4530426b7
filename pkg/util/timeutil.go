package util

import "time"

// MinuteLayout matches the value of an HTML datetime-local input.
const MinuteLayout = "2006-01-02T15:04"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// MinuteStamp formats t in UTC at minute resolution.
func MinuteStamp(t time.Time) string {
	return t.UTC().Format(MinuteLayout)
}
