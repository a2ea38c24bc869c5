package domain

import (
	"math"
	"strings"
	"time"
)

// zonedLayouts carry a "Z" designator or a numeric offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// naiveLayouts are ISO-8601 forms without a zone designator. Open-Meteo emits
// "2006-01-02T15:04" when asked for timezone=UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp and returns it in UTC. Strings
// with a "Z" designator or a numeric offset are converted to UTC; strings
// without zone information are taken to be UTC already.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ValidationError{Field: "timestamp", Reason: "empty"}
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ValidationError{Field: "timestamp", Value: s, Reason: "not an ISO-8601 instant"}
}

// Storable instants span years 1 through 9999.
var (
	minInstant = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxInstant = time.Date(9999, time.December, 31, 23, 59, 59, 999999000, time.UTC)
)

// TimeFromEpochMillis converts epoch milliseconds to a UTC instant, keeping
// sub-second precision down to the microsecond. Values outside years
// 1..9999 are rejected.
func TimeFromEpochMillis(ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, &ValidationError{Field: "timestamp", Value: ms, Reason: "not a finite epoch value"}
	}
	// float64(math.MaxInt64) rounds up to 2^63, so compare against the exact bounds.
	micros := math.Round(ms * 1000)
	if micros >= 0x1p63 || micros < -0x1p63 {
		return time.Time{}, &ValidationError{Field: "timestamp", Value: ms, Reason: "out of range"}
	}
	t := time.UnixMicro(int64(micros)).UTC()
	if t.Before(minInstant) || t.After(maxInstant) {
		return time.Time{}, &ValidationError{Field: "timestamp", Value: ms, Reason: "outside years 1 to 9999"}
	}
	return t, nil
}

// normalizeTimestamp returns t in UTC. The zero instant is rejected because it
// is what a missing or unparsed value decodes to.
func normalizeTimestamp(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, &ValidationError{Field: "timestamp", Reason: "missing"}
	}
	return t.UTC(), nil
}
