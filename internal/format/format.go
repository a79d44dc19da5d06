// Package format renders epoch timestamps and second counts for display.
package format

import (
	"fmt"
	"time"
)

const (
	// TimestampLayout is DD-MM-YYYY HH:mm:ss
	TimestampLayout = "02-01-2006 15:04:05"
	// Placeholder is shown for unset timestamps
	Placeholder = "_"

	durationLayout = "15:04:05"
	secondsPerDay  = 24 * 60 * 60
)

// Timestamp formats an epoch second in the local time zone
func Timestamp(epoch int64) string {
	return TimestampIn(epoch, time.Local)
}

// TimestampIn formats an epoch second in loc. Unset (<= 0) values
// render as the placeholder.
func TimestampIn(epoch int64, loc *time.Location) string {
	if epoch <= 0 {
		return Placeholder
	}
	return time.Unix(epoch, 0).In(loc).Format(TimestampLayout)
}

// ParseTimestamp is the inverse of Timestamp
func ParseTimestamp(s string) (int64, error) {
	return ParseTimestampIn(s, time.Local)
}

// ParseTimestampIn is the inverse of TimestampIn. The placeholder parses to 0.
func ParseTimestampIn(s string, loc *time.Location) (int64, error) {
	if s == Placeholder {
		return 0, nil
	}
	t, err := time.ParseInLocation(TimestampLayout, s, loc)
	if err != nil {
		return 0, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t.Unix(), nil
}

// Duration renders seconds as zero-padded HH:MM:SS. Values of 24h or more
// wrap around, negative values keep their sign.
func Duration(seconds int64) string {
	sign := ""
	abs := uint64(seconds)
	if seconds < 0 {
		sign = "-"
		// negating as uint64 also covers math.MinInt64
		abs = -abs
	}
	return sign + time.Unix(int64(abs%secondsPerDay), 0).UTC().Format(durationLayout)
}

// Pluralize appends "s" to word unless count is exactly one
func Pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

// Count renders "<count> <word>" with the word pluralized
func Count(word string, count int) string {
	return fmt.Sprintf("%d %s", count, Pluralize(word, count))
}
