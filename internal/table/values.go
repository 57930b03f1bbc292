package table

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// emptySentinels are lower-cased placeholders that count as "no value".
var emptySentinels = map[string]struct{}{
	"null":      {},
	"na":        {},
	"n/a":       {},
	"-":         {},
	"nan":       {},
	"none":      {},
	"undefined": {},
}

// IsEmpty reports whether a raw cell value is blank or a missing-value
// placeholder such as "N/A" or "null".
func IsEmpty(v string) bool {
	s := strings.TrimSpace(v)
	if s == "" {
		return true
	}
	_, ok := emptySentinels[strings.ToLower(s)]
	return ok
}

// ParseNumber parses a trimmed cell as a finite float.
func ParseNumber(v string) (float64, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsMissingNumeric reports whether a cell needs numeric imputation: it is
// empty or does not parse as a number.
func IsMissingNumeric(v string) bool {
	if IsEmpty(v) {
		return true
	}
	_, ok := ParseNumber(v)
	return !ok
}

// FormatNumber renders a float with the shortest exact representation, so
// 20 becomes "20" and 2.5 becomes "2.5".
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	"Jan 2, 2006", "2 Jan 2006", "January 2, 2006", "2 January 2006",
}

// ParseDate interprets a cell as a calendar date. Known layouts are tried
// first, then a permissive parser. Short bare numbers are never dates.
func ParseDate(v string) (time.Time, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	if _, isNum := ParseNumber(s); isNum && len(s) < 8 {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
