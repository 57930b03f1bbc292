// Package table holds the in-memory dataset model shared by the mutation
// engine and the text front ends.
//
// Rows are stored positionally against a closed, per-table header set. Cell
// access goes through a Column handle obtained from Resolve, so lookups of
// unknown columns fail once at the resolver boundary instead of silently
// reading empty values at arbitrary call sites.
package table

import (
	"fmt"
	"sort"
	"strings"
)

// Table is an ordered sequence of rows plus an ordered set of unique headers.
// Every row carries exactly one value per header.
type Table struct {
	headers []string
	rows    [][]string
}

// Column is a resolved reference to one header of a specific table.
type Column struct {
	Name  string
	index int
}

// Index returns the zero-based header position of the column.
func (c Column) Index() int { return c.index }

// New creates an empty table with the given headers. Headers must be unique.
func New(headers []string) (*Table, error) {
	seen := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		if _, ok := seen[h]; ok {
			return nil, fmt.Errorf("duplicate header %q", h)
		}
		seen[h] = struct{}{}
	}
	hs := make([]string, len(headers))
	for i, h := range headers {
		hs[i] = normalizeNewlines(h)
	}
	return &Table{headers: hs}, nil
}

// MustNew is New for literal fixtures; it panics on duplicate headers.
func MustNew(headers []string, rows ...[]string) *Table {
	t, err := New(headers)
	if err != nil {
		panic(err)
	}
	for _, r := range rows {
		t.AppendRow(r)
	}
	return t
}

// Headers returns a copy of the header names in display order.
func (t *Table) Headers() []string {
	out := make([]string, len(t.headers))
	copy(out, t.headers)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// AppendRow adds a row, padding missing trailing values with "" and dropping
// values beyond the header count. CRLF inside a cell is stored as LF.
func (t *Table) AppendRow(values []string) {
	row := make([]string, len(t.headers))
	copy(row, values)
	for i, v := range row {
		row[i] = normalizeNewlines(v)
	}
	t.rows = append(t.rows, row)
}

// Get returns the value at a zero-based row index.
func (t *Table) Get(row int, c Column) string {
	return t.rows[row][c.index]
}

// Set writes a value and reports whether the cell content changed. CRLF is
// stored as LF, the form a CSV reader returns it in.
func (t *Table) Set(row int, c Column, value string) bool {
	value = normalizeNewlines(value)
	if t.rows[row][c.index] == value {
		return false
	}
	t.rows[row][c.index] = value
	return true
}

// Row returns the zero-based row as a header-keyed map.
func (t *Table) Row(i int) map[string]string {
	out := make(map[string]string, len(t.headers))
	for j, h := range t.headers {
		out[h] = t.rows[i][j]
	}
	return out
}

// Record returns a copy of the zero-based row in header order.
func (t *Table) Record(i int) []string {
	out := make([]string, len(t.headers))
	copy(out, t.rows[i])
	return out
}

// Values returns a copy of the column's values in row order.
func (t *Table) Values(c Column) []string {
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[c.index]
	}
	return out
}

// RemoveRow deletes the row at a 1-based position.
func (t *Table) RemoveRow(rowNumber int) error {
	idx, err := t.RowIndex(rowNumber)
	if err != nil {
		return err
	}
	t.rows = append(t.rows[:idx], t.rows[idx+1:]...)
	return nil
}

// RowIndex converts a 1-based row number into a zero-based index, failing
// with RowOutOfRangeError when it does not address an existing row.
func (t *Table) RowIndex(rowNumber int) (int, error) {
	if rowNumber < 1 || rowNumber > len(t.rows) {
		return 0, &RowOutOfRangeError{Row: rowNumber, Rows: len(t.rows)}
	}
	return rowNumber - 1, nil
}

// Retain keeps only the rows for which keep returns true and returns how many
// rows were dropped.
func (t *Table) Retain(keep func(i int) bool) int {
	kept := t.rows[:0]
	dropped := 0
	for i, r := range t.rows {
		if keep(i) {
			kept = append(kept, r)
			continue
		}
		dropped++
	}
	// clear the tail so removed rows are not retained by the backing array
	for i := len(kept); i < len(t.rows); i++ {
		t.rows[i] = nil
	}
	t.rows = kept
	return dropped
}

// SortBy stably reorders rows by the column using cmp on the raw values.
func (t *Table) SortBy(c Column, cmp func(a, b string) int, desc bool) {
	sort.SliceStable(t.rows, func(i, j int) bool {
		r := cmp(t.rows[i][c.index], t.rows[j][c.index])
		if desc {
			return r > 0
		}
		return r < 0
	})
}

// Clone returns a deep copy; mutations on the copy never affect t.
func (t *Table) Clone() *Table {
	out := &Table{headers: t.Headers(), rows: make([][]string, len(t.rows))}
	for i, r := range t.rows {
		cp := make([]string, len(r))
		copy(cp, r)
		out.rows[i] = cp
	}
	return out
}

// Equal reports whether both tables have the same headers and cell values.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.headers) != len(o.headers) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.headers {
		if t.headers[i] != o.headers[i] {
			return false
		}
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if t.rows[i][j] != o.rows[i][j] {
				return false
			}
		}
	}
	return true
}

// uniqueHeaders replaces blank names with Column_N and suffixes duplicates so
// every header is addressable. Other headers keep their text as read.
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = normalizeNewlines(h)
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		base := h
		for n := seen[base]; ; n++ {
			if n > 0 {
				h = fmt.Sprintf("%s_%d", base, n+1)
			}
			if _, dup := seen[h]; !dup {
				seen[base] = n + 1
				break
			}
		}
		seen[h] = 1
		out[i] = h
	}
	return out
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r\n") {
		return s
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}
