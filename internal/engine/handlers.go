package engine

import (
	"fmt"

	"github.com/KaramelBytes/datafix-cli/internal/report"
	"github.com/KaramelBytes/datafix-cli/internal/stats"
	"github.com/KaramelBytes/datafix-cli/internal/table"
)

// cellRule computes the replacement for one cell. write=false leaves the cell
// as it is and still counts as success.
type cellRule func(cur string) (next string, write bool, err error)

func (r *run) ruleFor(a Action, col table.Column, rowSpecific bool) (cellRule, error) {
	switch a.Type {
	case FillMissing:
		return fillMissing(a), nil
	case FillMissingNumeric:
		return r.fillNumeric(a, col), nil
	case StandardizeFormat:
		return standardize(a, rowSpecific)
	case ReviewConsistency:
		return reviewConsistency(a, rowSpecific)
	}
	return nil, report.Errorf(report.ParseError, "action type %s does not edit cells", a.Type)
}

func fillMissing(a Action) cellRule {
	return func(cur string) (string, bool, error) {
		if !table.IsEmpty(cur) {
			return "", false, nil
		}
		v, ok := a.SuggestedFragment.Get()
		if !ok {
			return "", false, missingValue(a, "suggestedFragment")
		}
		return v, true, nil
	}
}

func (r *run) fillNumeric(a Action, col table.Column) cellRule {
	return func(cur string) (string, bool, error) {
		if !table.IsMissingNumeric(cur) {
			return "", false, nil
		}
		if a.ImputationMethod == "" {
			v, ok := a.SuggestedFragment.Get()
			if !ok {
				return "", false, missingValue(a, "imputationMethod or suggestedFragment")
			}
			return v, true, nil
		}
		m, err := stats.ParseMethod(a.ImputationMethod)
		if err != nil {
			return "", false, report.Wrap(report.MissingReplacementValue, err, fmt.Sprintf("column %q", col.Name))
		}
		s := r.memo.Get(col)
		if s == nil {
			return "", false, report.Errorf(report.MissingReplacementValue,
				"column %q has no numeric values to compute the %s from", col.Name, m)
		}
		v, err := s.Value(m)
		if err != nil {
			return "", false, report.Wrap(report.MissingReplacementValue, err, fmt.Sprintf("column %q", col.Name))
		}
		return table.FormatNumber(v), true, nil
	}
}

func reviewConsistency(a Action, rowSpecific bool) (cellRule, error) {
	v, ok := a.UserProvidedReplacement.Get()
	if !ok {
		v, ok = a.SuggestedFragment.Get()
	}
	if !ok {
		return nil, missingValue(a, "userProvidedReplacement or suggestedFragment")
	}
	if rowSpecific {
		return func(string) (string, bool, error) { return v, true, nil }, nil
	}
	orig, ok := a.OriginalFragment.Get()
	if !ok {
		return nil, missingValue(a, "originalFragment")
	}
	return func(cur string) (string, bool, error) {
		return v, cur == orig, nil
	}, nil
}

// replacement is the value MODIFY_CELL writes; a user override beats the
// producer's suggestion.
func replacement(a Action) (original, next string, err error) {
	original, ok := a.OriginalFragment.Get()
	if !ok {
		return "", "", missingValue(a, "originalFragment")
	}
	next, ok = a.SuggestedFragment.Get()
	if !ok {
		return "", "", missingValue(a, "suggestedFragment")
	}
	if u, ok := a.UserProvidedReplacement.Get(); ok {
		next = u
	}
	return original, next, nil
}

func (r *run) modifyRow(a Action, col table.Column, idx int) (int, error) {
	original, next, err := replacement(a)
	if err != nil {
		return 0, err
	}
	target, err := Locate(r.t, col, idx, original)
	if err != nil {
		return 0, err
	}
	if target != idx {
		r.rep.Warn("action %s: %q not found at row %d, applied to row %d instead", a.ID, original, idx+1, target+1)
	}
	return boolCount(r.t.Set(target, col, next)), nil
}

// modifyColumn edits every row whose value matches originalFragment.
func (r *run) modifyColumn(a Action, col table.Column) (int, error) {
	original, next, err := replacement(a)
	if err != nil {
		return 0, err
	}
	matched, n := 0, 0
	for i := 0; i < r.t.Len(); i++ {
		if !matchesAt(r.t.Get(i, col), original) {
			continue
		}
		matched++
		n += boolCount(r.t.Set(i, col, next))
	}
	if matched == 0 {
		return 0, report.Errorf(report.MatchNotFound, "no cell in column %q matches %q", col.Name, original)
	}
	return n, nil
}

func missingValue(a Action, field string) error {
	return report.Errorf(report.MissingReplacementValue, "%s action %s needs a string %s", a.Type, a.ID, field)
}
