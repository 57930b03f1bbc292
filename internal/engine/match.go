package engine

import (
	"strings"

	"github.com/KaramelBytes/datafix-cli/internal/report"
	"github.com/KaramelBytes/datafix-cli/internal/table"
)

// Placeholder is the originalFragment producers use when any current value
// should be replaced.
const Placeholder = "Cell value to be modified"

// Normalize trims, lowercases and strips one leading and one trailing quote.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if n := len(s); n > 0 && (s[n-1] == '"' || s[n-1] == '\'') {
		s = s[:n-1]
	}
	return s
}

func isPlaceholder(original string) bool {
	return strings.TrimSpace(original) == Placeholder
}

// matchesAt applies the declared-row precedence: placeholder, normalized
// equality, raw equality.
func matchesAt(cell, original string) bool {
	return isPlaceholder(original) || Normalize(cell) == Normalize(original) || cell == original
}

// Locate finds the row a MODIFY_CELL edit should land on. The declared row
// wins when it matches; otherwise the first other row in the column whose
// normalized value matches is used.
func Locate(t *table.Table, c table.Column, declared int, original string) (int, error) {
	if matchesAt(t.Get(declared, c), original) {
		return declared, nil
	}
	want := Normalize(original)
	for i := 0; i < t.Len(); i++ {
		if i == declared {
			continue
		}
		if Normalize(t.Get(i, c)) == want {
			return i, nil
		}
	}
	return -1, report.Errorf(report.MatchNotFound,
		"no cell matching %q at row %d or elsewhere in column %q", original, declared+1, c.Name)
}
