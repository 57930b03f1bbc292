package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/datafix-cli/internal/table"
)

const isoDate = "2006-01-02"

// transform rewrites a cell value. ok=false means the value is left alone.
type transform func(string) (string, bool)

// formatKeywords is checked in order against the lowercased suggestion.
var formatKeywords = []struct {
	keys []string
	fn   transform
}{
	{[]string{"uppercase", "upper case"}, func(s string) (string, bool) { return strings.ToUpper(s), true }},
	{[]string{"lowercase", "lower case"}, func(s string) (string, bool) { return strings.ToLower(s), true }},
	{[]string{"title case", "titlecase"}, func(s string) (string, bool) {
		return cases.Title(language.Und).String(s), true
	}},
	{[]string{"trim"}, func(s string) (string, bool) { return strings.TrimSpace(s), true }},
	{[]string{"yyyy-mm-dd"}, func(s string) (string, bool) {
		d, ok := table.ParseDate(s)
		if !ok {
			return "", false
		}
		return d.Format(isoDate), true
	}},
}

// detectTransform infers a transform from keywords in the suggestion.
func detectTransform(suggestion string) transform {
	lower := strings.ToLower(suggestion)
	for _, k := range formatKeywords {
		for _, key := range k.keys {
			if strings.Contains(lower, key) {
				return k.fn
			}
		}
	}
	return nil
}

func standardize(a Action, rowSpecific bool) (cellRule, error) {
	suggestion, ok := a.SuggestedFragment.Get()
	if !ok {
		return nil, missingValue(a, "suggestedFragment")
	}
	fn := detectTransform(suggestion)
	switch {
	case fn != nil:
		return func(cur string) (string, bool, error) {
			if table.IsEmpty(cur) {
				return "", false, nil
			}
			next, ok := fn(cur)
			return next, ok, nil
		}, nil
	case rowSpecific:
		return func(string) (string, bool, error) { return suggestion, true, nil }, nil
	default:
		return func(string) (string, bool, error) { return "", false, nil }, nil
	}
}
