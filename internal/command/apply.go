package command

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/datafix-cli/internal/engine"
	"github.com/KaramelBytes/datafix-cli/internal/report"
	"github.com/KaramelBytes/datafix-cli/internal/stats"
	"github.com/KaramelBytes/datafix-cli/internal/table"
)

// Runner applies free-text instructions to tables.
type Runner struct {
	log *zap.Logger
}

// NewRunner returns a Runner; a nil logger disables logging.
func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log}
}

// Apply parses the instruction and mutates t in place. The report always
// holds exactly one result.
func (r *Runner) Apply(t *table.Table, instruction string) *report.Report {
	rep := report.New()
	if t == nil {
		return report.Critical(report.Errorf(report.CriticalInputError, "no table loaded"))
	}
	in, ok := Parse(instruction)
	if !ok {
		rep.Failed(report.Result{Type: "UNRECOGNIZED"}, report.Errorf(report.ParseError,
			"no command matched %q; try e.g. \"fill missing values in 'City' with 'Unknown'\", \"sort by Price descending\" or \"remove rows where Age < 18\"",
			strings.TrimSpace(instruction)))
		rep.Finalize(1)
		rep.Summary = "No action matched the instruction. " + rep.Summary
		return rep
	}
	r.log.Debug("Parsed instruction", zap.String("kind", string(in.Kind)), zap.String("column", in.Column))

	res := report.Result{Type: string(in.Kind)}
	col, err := ResolveColumn(t, in.Column)
	if err != nil {
		res.Column = in.Column
		rep.Failed(res, err)
		return rep.Finalize(1)
	}
	res.Column = col.Name

	if err := execute(t, col, in, &res); err != nil {
		rep.Failed(res, err)
		return rep.Finalize(1)
	}
	rep.Applied(res)
	rep.Finalize(1)
	if res.Message != "" {
		rep.Summary = res.Message + ". " + rep.Summary
	}
	return rep
}

// ResolveColumn resolves name through the table resolver and falls back to
// the best partial header match.
func ResolveColumn(t *table.Table, name string) (table.Column, error) {
	c, err := t.Resolve(name)
	if err == nil {
		return c, nil
	}
	if p, ok := t.ResolvePartial(name); ok {
		return p, nil
	}
	return table.Column{}, err
}

func execute(t *table.Table, col table.Column, in Intent, res *report.Result) error {
	switch in.Kind {
	case FillMissing:
		res.CellsModified = setWhere(t, col, func(v string) (string, bool) {
			return in.Value, table.IsEmpty(v)
		})
		res.Message = fmt.Sprintf("Filled %d empty cells in %q with %q", res.CellsModified, col.Name, in.Value)
	case ReplaceValue:
		want := engine.Normalize(in.Old)
		res.CellsModified = setWhere(t, col, func(v string) (string, bool) {
			return in.Value, engine.Normalize(v) == want
		})
		res.Message = fmt.Sprintf("Replaced %q with %q in %d cells of %q", in.Old, in.Value, res.CellsModified, col.Name)
	case ChangeCase:
		conv := caseFunc(in.Case)
		res.CellsModified = setWhere(t, col, func(v string) (string, bool) {
			return conv(v), !table.IsEmpty(v)
		})
		res.Message = fmt.Sprintf("Converted %d cells in %q to %s case", res.CellsModified, col.Name, in.Case)
	case FillStatistic:
		s := stats.Compute(t, col)
		if s == nil {
			return report.Errorf(report.MissingReplacementValue, "column %q has no numeric values to compute the %s from", col.Name, in.Method)
		}
		v, err := s.Value(in.Method)
		if err != nil {
			return report.Wrap(report.MissingReplacementValue, err, col.Name)
		}
		fill := table.FormatNumber(v)
		res.CellsModified = setWhere(t, col, func(cur string) (string, bool) {
			return fill, table.IsMissingNumeric(cur)
		})
		res.Message = fmt.Sprintf("Filled %d missing cells in %q with the %s (%s)", res.CellsModified, col.Name, in.Method, fill)
	case Sort:
		t.SortBy(col, sortCompare(in.Descending), false)
		dir := "ascending"
		if in.Descending {
			dir = "descending"
		}
		res.Message = fmt.Sprintf("Sorted %d rows by %q %s", t.Len(), col.Name, dir)
	case Filter:
		res.RowsRemoved = t.Retain(func(i int) bool {
			return matches(t.Get(i, col), in.Op, in.Value) == in.Keep
		})
		res.Message = fmt.Sprintf("Removed %d rows, %d remain", res.RowsRemoved, t.Len())
	default:
		return report.Errorf(report.ParseError, "unsupported instruction kind %s", in.Kind)
	}
	return nil
}

// setWhere rewrites every cell for which fn reports true and returns how many
// cells actually changed.
func setWhere(t *table.Table, col table.Column, fn func(string) (string, bool)) int {
	n := 0
	for i := 0; i < t.Len(); i++ {
		if next, ok := fn(t.Get(i, col)); ok && t.Set(i, col, next) {
			n++
		}
	}
	return n
}

func caseFunc(mode string) func(string) string {
	switch mode {
	case "upper":
		return strings.ToUpper
	case "lower":
		return strings.ToLower
	}
	c := cases.Title(language.Und)
	return c.String
}

// sortCompare orders numbers numerically and everything else
// case-insensitively. Empty cells always sort last.
func sortCompare(desc bool) func(a, b string) int {
	return func(a, b string) int {
		ae, be := table.IsEmpty(a), table.IsEmpty(b)
		switch {
		case ae && be:
			return 0
		case ae:
			return 1
		case be:
			return -1
		}
		c := compareValues(a, b)
		if desc {
			return -c
		}
		return c
	}
}

func compareValues(a, b string) int {
	fa, okA := table.ParseNumber(a)
	fb, okB := table.ParseNumber(b)
	switch {
	case okA && okB:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b)))
}

func matches(cell, op, val string) bool {
	switch op {
	case OpEmpty:
		return table.IsEmpty(cell)
	case OpNotEmpty:
		return !table.IsEmpty(cell)
	case OpContains:
		return strings.Contains(strings.ToLower(cell), strings.ToLower(val))
	case OpEq:
		return equalValues(cell, val)
	case OpNe:
		return !equalValues(cell, val)
	}
	a, okA := table.ParseNumber(cell)
	b, okB := table.ParseNumber(val)
	if !okA || !okB {
		return false
	}
	switch op {
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	}
	return false
}

func equalValues(a, b string) bool {
	fa, okA := table.ParseNumber(a)
	fb, okB := table.ParseNumber(b)
	if okA && okB {
		return fa == fb
	}
	return engine.Normalize(a) == engine.Normalize(b)
}
