// Package stats computes imputation statistics over a column's numeric values.
package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/datafix-cli/internal/table"
)

// Method names a statistic usable for imputation.
type Method string

const (
	Mean   Method = "mean"
	Median Method = "median"
	Mode   Method = "mode"
)

// ParseMethod accepts mean|median|mode (case-insensitive); "average" and
// "avg" are aliases for mean.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mean", "average", "avg":
		return Mean, nil
	case "median":
		return Median, nil
	case "mode":
		return Mode, nil
	}
	return "", fmt.Errorf("invalid imputation method %q (use mean|median|mode)", s)
}

// Summary holds the statistics of one column.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	// Mode falls back to Mean when no value repeats.
	Mode float64
}

// Value returns the statistic named by m.
func (s *Summary) Value(m Method) (float64, error) {
	switch m {
	case Mean:
		return s.Mean, nil
	case Median:
		return s.Median, nil
	case Mode:
		return s.Mode, nil
	}
	return 0, fmt.Errorf("invalid imputation method %q (use mean|median|mode)", string(m))
}

// Compute returns statistics over the column's numeric values, skipping empty
// placeholders and anything that does not parse. It returns nil when no
// numeric value remains.
func Compute(t *table.Table, c table.Column) *Summary {
	var vals []float64
	for _, v := range t.Values(c) {
		if table.IsEmpty(v) {
			continue
		}
		if f, ok := table.ParseNumber(v); ok {
			vals = append(vals, f)
		}
	}
	return Of(vals)
}

// Of computes statistics over raw values; nil when vals is empty.
func Of(vals []float64) *Summary {
	if len(vals) == 0 {
		return nil
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	s := &Summary{Count: len(sorted), Mean: sum / float64(len(sorted))}

	n := len(sorted)
	if n%2 == 1 {
		s.Median = sorted[n/2]
	} else {
		s.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	// sorted order makes equal values adjacent; strict > keeps the first run on ties
	best, bestCount := 0.0, 0
	for i := 0; i < n; {
		j := i
		for j < n && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestCount {
			best, bestCount = sorted[i], j-i
		}
		i = j
	}
	if bestCount > 1 {
		s.Mode = best
	} else {
		s.Mode = s.Mean
	}
	return s
}

// Memo caches Summary values per column for the duration of one run. A Memo
// must not be shared between runs or tables.
type Memo struct {
	t     *table.Table
	cache map[string]*Summary
}

// NewMemo creates an empty cache bound to t.
func NewMemo(t *table.Table) *Memo {
	return &Memo{t: t, cache: make(map[string]*Summary)}
}

// Get computes the column statistics on first use and returns the cached
// result afterwards, including a cached nil for non-numeric columns.
func (m *Memo) Get(c table.Column) *Summary {
	if s, ok := m.cache[c.Name]; ok {
		return s
	}
	s := Compute(m.t, c)
	m.cache[c.Name] = s
	return s
}
