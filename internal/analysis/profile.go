// Package analysis profiles a loaded table into a compact Markdown summary
// used as prompt context for the suggestion generator and by `datafix profile`.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/datafix-cli/internal/engine"
	"github.com/KaramelBytes/datafix-cli/internal/stats"
	"github.com/KaramelBytes/datafix-cli/internal/table"
)

// Options controls profiling.
type Options struct {
	// Name is shown in the summary header, usually the file's base name.
	Name string
	// SampleRows determines how many leading rows to include.
	SampleRows int
	// TopValues caps the categorical value list per column.
	TopValues int
	// OutlierThreshold is the robust |z| above which numeric values count
	// as outliers; 0 disables outlier detection.
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{SampleRows: 5, TopValues: 8, OutlierThreshold: 3.5}
}

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindEmpty       = "empty"
)

// Report is a Markdown-friendly profile of a table.
type Report struct {
	Name     string          `json:"name,omitempty"`
	Rows     int             `json:"rows"`
	Cols     []ColumnSummary `json:"columns"`
	Samples  [][]string      `json:"samples"`
	Headers  []string        `json:"headers"`
	Warnings []string        `json:"warnings,omitempty"`
}

// ColumnSummary captures inferred kind and statistics per column.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	NonNull int    `json:"nonNull"`
	// Missing counts blank cells and placeholders such as "N/A".
	Missing      int `json:"missing"`
	Placeholders int `json:"placeholders,omitempty"`
	Unique       int `json:"unique"`
	// Invalid counts non-empty cells that do not parse as the column's kind.
	Invalid        int    `json:"invalid,omitempty"`
	InvalidExample string `json:"invalidExample,omitempty"`
	// Numeric stats
	Min              float64 `json:"min,omitempty"`
	Max              float64 `json:"max,omitempty"`
	Mean             float64 `json:"mean,omitempty"`
	Median           float64 `json:"median,omitempty"`
	Std              float64 `json:"std,omitempty"`
	Outliers         int     `json:"outliers,omitempty"`
	OutlierThreshold float64 `json:"outlierThreshold,omitempty"`
	// Datetime: number of distinct layouts seen
	DateLayouts int             `json:"dateLayouts,omitempty"`
	TopValues   []CategoryCount `json:"topValues,omitempty"`
	// Variants groups values that differ only by case, whitespace or quotes.
	Variants     [][]string `json:"variants,omitempty"`
	ExampleTexts []string   `json:"exampleTexts,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Profile analyzes t.
func Profile(t *table.Table, opt Options) *Report {
	if opt.SampleRows < 0 {
		opt.SampleRows = 0
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 8
	}
	rep := &Report{Name: opt.Name, Rows: t.Len(), Headers: t.Headers()}
	for i := 0; i < t.Len() && i < opt.SampleRows; i++ {
		rep.Samples = append(rep.Samples, t.Record(i))
	}
	for _, h := range rep.Headers {
		c, _ := t.ResolveStrict(h)
		rep.Cols = append(rep.Cols, profileColumn(t.Values(c), h, opt))
	}
	if t.Len() == 0 {
		rep.Warnings = append(rep.Warnings, "table has no data rows")
	}
	return rep
}

func profileColumn(vals []string, name string, opt Options) ColumnSummary {
	s := ColumnSummary{Name: name}
	var (
		nums       []float64
		dates      int
		texts      int
		nonNumeric []string
		longest    int
	)
	layouts := map[string]struct{}{}
	counts := map[string]int{}
	for _, raw := range vals {
		v := strings.TrimSpace(raw)
		if table.IsEmpty(v) {
			s.Missing++
			if v != "" {
				s.Placeholders++
			}
			continue
		}
		s.NonNull++
		counts[v]++
		if len(v) > longest {
			longest = len(v)
		}
		if f, ok := table.ParseNumber(v); ok {
			nums = append(nums, f)
			continue
		}
		nonNumeric = append(nonNumeric, v)
		if _, ok := table.ParseDate(v); ok {
			dates++
			layouts[dateShape(v)] = struct{}{}
			continue
		}
		texts++
	}
	s.Unique = len(counts)

	switch {
	case s.NonNull == 0:
		s.Kind = KindEmpty
	case len(nums) >= dates && len(nums) >= texts:
		s.Kind = KindNumeric
		numericStats(&s, nums, opt.OutlierThreshold)
		s.Invalid = len(nonNumeric)
		if s.Invalid > 0 {
			s.InvalidExample = nonNumeric[0]
		}
	case dates >= texts:
		s.Kind = KindDatetime
		s.DateLayouts = len(layouts)
		s.Invalid = texts
	case longest <= 64 && (s.Unique*2 <= s.NonNull || s.Unique <= 20 && longest <= 24):
		s.Kind = KindCategorical
		s.TopValues = topValues(counts, opt.TopValues)
	default:
		s.Kind = KindText
		for _, v := range vals {
			if len(s.ExampleTexts) == 3 {
				break
			}
			if !table.IsEmpty(v) {
				s.ExampleTexts = append(s.ExampleTexts, strings.TrimSpace(v))
			}
		}
	}
	if s.Kind == KindCategorical || s.Kind == KindText {
		s.Variants = variants(counts)
	}
	return s
}

func numericStats(s *ColumnSummary, nums []float64, threshold float64) {
	if len(nums) == 0 {
		return
	}
	sum := stats.Of(nums)
	s.Mean, s.Median = sum.Mean, sum.Median
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	var m2 float64
	for _, x := range nums {
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
		m2 += (x - s.Mean) * (x - s.Mean)
	}
	if len(nums) > 1 {
		s.Std = math.Sqrt(m2 / float64(len(nums)-1))
	}
	if threshold <= 0 || len(nums) < 8 {
		return
	}
	median, mad := medianMAD(nums)
	s.OutlierThreshold = threshold
	if mad == 0 {
		return
	}
	for _, v := range nums {
		if math.Abs(0.6745*(v-median)/mad) > threshold {
			s.Outliers++
		}
	}
}

func topValues(counts map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

// variants returns groups of two or more spellings that normalize to the
// same value, each group sorted, groups ordered by their first spelling.
func variants(counts map[string]int) [][]string {
	groups := map[string][]string{}
	for v := range counts {
		k := engine.Normalize(v)
		groups[k] = append(groups[k], v)
	}
	var out [][]string
	for _, g := range groups {
		if len(g) > 1 {
			sort.Strings(g)
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// dateShape reduces a date string to its layout: digits become 9 and
// letters a, so "2024-01-05" and "2023-12-31" share a shape.
func dateShape(v string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return '9'
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return 'a'
		}
		return r
	}, v)
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return median, quantile(dev, 0.5)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Issues lists data-quality findings in a form the suggestion prompt and
// the CLI can show directly.
func (r *Report) Issues() []string {
	var out []string
	for _, c := range r.Cols {
		if c.Missing > 0 && c.Kind != KindEmpty {
			msg := fmt.Sprintf("%s: %d missing value(s)", c.Name, c.Missing)
			if c.Placeholders > 0 {
				msg += fmt.Sprintf(" (%d written as placeholders like N/A)", c.Placeholders)
			}
			out = append(out, msg)
		}
		if c.Kind == KindEmpty && r.Rows > 0 {
			out = append(out, fmt.Sprintf("%s: column is entirely empty", c.Name))
		}
		if c.Kind == KindNumeric && c.Invalid > 0 {
			out = append(out, fmt.Sprintf("%s: %d non-numeric value(s) in a numeric column, e.g. %q", c.Name, c.Invalid, c.InvalidExample))
		}
		if c.Kind == KindDatetime && c.DateLayouts > 1 {
			out = append(out, fmt.Sprintf("%s: dates use %d different formats", c.Name, c.DateLayouts))
		}
		if c.Outliers > 0 {
			out = append(out, fmt.Sprintf("%s: %d outlier(s) above |z|>%.1f", c.Name, c.Outliers, c.OutlierThreshold))
		}
		for _, g := range c.Variants {
			out = append(out, fmt.Sprintf("%s: inconsistent spellings %s", c.Name, quoteAll(g)))
		}
	}
	return out
}

func quoteAll(vs []string) string {
	q := make([]string, len(vs))
	for i, v := range vs {
		q[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(q, " / ")
}

// Markdown renders a compact report suitable for prompts or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", r.Rows)
	fmt.Fprintf(&b, "Columns: %d\n\n", len(r.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct)
		switch c.Kind {
		case KindNumeric:
			fmt.Fprintf(&b, "; min %.4g, max %.4g, mean %.4g, median %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Median, c.Std)
		case KindCategorical:
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
				}
				if c.Unique > len(c.TopValues) {
					fmt.Fprintf(&b, "; unique=%d", c.Unique)
				}
			}
		case KindText:
			if len(c.ExampleTexts) > 0 {
				b.WriteString("; e.g. ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" / ")
					}
					b.WriteString(safeVal(clip(ex, 60)))
				}
			}
		}
		b.WriteString("\n")
	}

	if issues := r.Issues(); len(issues) > 0 {
		b.WriteString("\n[DATA QUALITY]\n")
		for _, is := range issues {
			fmt.Fprintf(&b, "- %s\n", is)
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| Row | ")
		for i, h := range r.Headers {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(safeName(h)))
		}
		b.WriteString(" |\n|---|")
		for range r.Headers {
			b.WriteString("---|")
		}
		b.WriteString("\n")
		for n, row := range r.Samples {
			fmt.Fprintf(&b, "| %d | ", n+1)
			for i, v := range row {
				if i > 0 {
					b.WriteString(" | ")
				}
				b.WriteString(safeVal(clip(v, 80)))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func clip(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
