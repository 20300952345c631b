package transformer

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Timestamps keep the calendar date as
// written; no zone conversion is applied before truncation.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// compactLayout is tried for eight-digit values, which are never read as
// epoch seconds.
const compactLayout = "20060102"

// maxEpoch is 9999-12-31T23:59:59Z; later values cannot be written as a
// YYYY-MM-DD date.
const maxEpoch = 253402300799

// ParseSignupDate parses a date, timestamp or Unix epoch seconds value and
// truncates it to midnight UTC of its calendar date. Dates outside years
// 1..9999 are rejected.
func ParseSignupDate(s string) (time.Time, bool) {
	t, ok := parseDate(strings.TrimSpace(s))
	if !ok || t.Year() < 1 || t.Year() > 9999 {
		return time.Time{}, false
	}
	return t, true
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}

	if len(s) == len(compactLayout) && allDigits(s) {
		t, err := time.Parse(compactLayout, s)
		return t, err == nil
	}

	if t, ok := parseEpoch(s); ok {
		return truncateDay(t.UTC()), true
	}
	return time.Time{}, false
}

// parseEpoch accepts non-negative integer or fractional seconds since the
// Unix epoch written as plain digits, up to maxEpoch.
func parseEpoch(s string) (time.Time, bool) {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if !allDigits(intPart) || (hasFrac && !allDigits(frac)) {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || sec > maxEpoch {
		return time.Time{}, false
	}
	var nsec int64
	if hasFrac {
		// nanosecond precision is enough; extra digits are ignored.
		if len(frac) > 9 {
			frac = frac[:9]
		}
		nsec, _ = strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
	}
	return time.Unix(sec, nsec), true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
