package sqlstmt

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/datafix-cli/internal/report"
	"github.com/KaramelBytes/datafix-cli/internal/table"
)

// Runner executes statements against a table in place.
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

// Exec parses and runs sql against t. SELECT statements come back with
// ReadOnly set and the table untouched so the caller can hand them to the
// suggestion generator.
func (r *Runner) Exec(t *table.Table, sql string) *report.Report {
	if t == nil {
		return report.Critical(report.Errorf(report.CriticalInputError, "no table loaded"))
	}
	rep := report.New()
	st, err := Parse(sql)
	res := report.Result{Type: string(st.Kind)}
	if res.Type == "" {
		res.Type = "STATEMENT"
	}
	if err != nil {
		rep.Failed(res, err)
		return rep.Finalize(1)
	}
	if st.Kind == Select {
		rep.ReadOnly = true
		res.Message = "read-only statement, answered by the suggestion generator"
		rep.Results = append(rep.Results, res)
		rep.Finalize(0)
		rep.Summary = "SELECT statements are not executed locally; delegated to the suggestion generator."
		return rep
	}

	if _, clash := t.ResolveFold(st.Table); clash {
		rep.Warn("table name %q is also a column name; it was treated as the table name", st.Table)
	}

	set, where, err := r.resolve(t, st, rep)
	if err != nil {
		rep.Failed(res, err)
		return rep.Finalize(1)
	}
	res.Column = where.Name
	if st.Kind == Update {
		res.Column = set.Name
	}

	match := func(i int) bool { return st.Where == nil || holds(st.Where, t.Get(i, where)) }
	switch st.Kind {
	case Update:
		matched := 0
		for i := 0; i < t.Len(); i++ {
			if !match(i) {
				continue
			}
			matched++
			if t.Set(i, set, st.Value) {
				res.CellsModified++
			}
		}
		res.Message = fmt.Sprintf("%d rows matched, %d cells updated", matched, res.CellsModified)
	case Delete:
		res.RowsRemoved = t.Retain(func(i int) bool { return !match(i) })
		res.Message = fmt.Sprintf("%d rows deleted", res.RowsRemoved)
	}
	r.log.Debug("Executed statement",
		zap.String("kind", string(st.Kind)),
		zap.Int("cellsModified", res.CellsModified),
		zap.Int("rowsRemoved", res.RowsRemoved))
	rep.Applied(res)
	return rep.Finalize(1)
}

// resolve looks up the SET and WHERE columns before any row is touched.
func (r *Runner) resolve(t *table.Table, st Statement, rep *report.Report) (set, where table.Column, err error) {
	if st.Kind == Update {
		if set, err = lookup(t, st.Column, rep); err != nil {
			return set, where, err
		}
	}
	if st.Where != nil {
		if where, err = lookup(t, st.Where.Column, rep); err != nil {
			return set, where, err
		}
	}
	return set, where, nil
}

// lookup tries the exact header first and accepts a case-insensitive match
// with a warning.
func lookup(t *table.Table, name string, rep *report.Report) (table.Column, error) {
	if c, ok := t.ResolveStrict(name); ok {
		return c, nil
	}
	if c, ok := t.ResolveFold(name); ok {
		rep.Warn("column %q matched %q case-insensitively", name, c.Name)
		return c, nil
	}
	return table.Column{}, &table.ColumnNotFoundError{Name: name, Available: t.Headers()}
}

func holds(c *Condition, cell string) bool {
	switch c.Op {
	case OpEq:
		return equalFold(cell, c.Values[0])
	case OpIn:
		for _, v := range c.Values {
			if equalFold(cell, v) {
				return true
			}
		}
		return false
	case OpIsNull:
		return table.IsEmpty(cell)
	case OpNotNull:
		return !table.IsEmpty(cell)
	}
	n, ok := table.ParseNumber(cell)
	if !ok {
		return false
	}
	switch c.Op {
	case OpNumEq:
		return n == c.Number
	case OpNe:
		return n != c.Number
	case OpGt:
		return n > c.Number
	case OpGe:
		return n >= c.Number
	case OpLt:
		return n < c.Number
	case OpLe:
		return n <= c.Number
	}
	return false
}

func equalFold(cell, lit string) bool {
	return strings.EqualFold(strings.TrimSpace(cell), strings.TrimSpace(lit))
}
