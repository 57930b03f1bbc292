package table

import "strings"

// Resolve maps a user-supplied column name onto a header: exact match first,
// then case-insensitive. It fails with ColumnNotFoundError otherwise.
func (t *Table) Resolve(name string) (Column, error) {
	if c, ok := t.ResolveStrict(name); ok {
		return c, nil
	}
	if c, ok := t.ResolveFold(name); ok {
		return c, nil
	}
	return Column{}, &ColumnNotFoundError{Name: name, Available: t.Headers()}
}

// ResolveStrict matches the name exactly. Surrounding whitespace is ignored
// on both the name and the header.
func (t *Table) ResolveStrict(name string) (Column, bool) {
	name = strings.TrimSpace(name)
	for i, h := range t.headers {
		if strings.TrimSpace(h) == name {
			return Column{Name: h, index: i}, true
		}
	}
	return Column{}, false
}

// ResolveFold matches the name case-insensitively, first header wins.
func (t *Table) ResolveFold(name string) (Column, bool) {
	name = strings.TrimSpace(name)
	for i, h := range t.headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return Column{Name: h, index: i}, true
		}
	}
	return Column{}, false
}

// ResolvePartial returns the header that best contains, or is contained in,
// the name (case-insensitive). Ties go to the smallest length difference and
// then to header order. Blank names never match.
func (t *Table) ResolvePartial(name string) (Column, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Column{}, false
	}
	best := -1
	bestDiff := 0
	for i, h := range t.headers {
		hl := strings.ToLower(strings.TrimSpace(h))
		if hl == "" || !(strings.Contains(hl, needle) || strings.Contains(needle, hl)) {
			continue
		}
		diff := len(hl) - len(needle)
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 {
		return Column{}, false
	}
	return Column{Name: t.headers[best], index: best}, true
}
