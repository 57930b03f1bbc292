// Package engine applies batches of declarative edit actions to a table and
// accounts for every action in a report.
package engine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/KaramelBytes/datafix-cli/internal/report"
	"github.com/KaramelBytes/datafix-cli/internal/stats"
	"github.com/KaramelBytes/datafix-cli/internal/table"
)

// Executor applies action batches. It holds no per-run state and is safe to
// share between goroutines working on different tables.
type Executor struct {
	log *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for per-action diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// NewExecutor returns an Executor with a no-op logger unless configured.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// run carries the state of one Execute call.
type run struct {
	t    *table.Table
	memo *stats.Memo
	rep  *report.Report
	log  *zap.Logger
}

// Execute applies actions to a copy of t. REMOVE_ROW actions run first in
// descending row order; all other actions then run in the given order against
// the shortened table. The input table is never modified.
func (e *Executor) Execute(t *table.Table, actions []Action) (*table.Table, *report.Report) {
	if t == nil {
		return nil, report.Critical(report.Errorf(report.CriticalInputError, "no table to apply actions to"))
	}
	r := &run{t: t.Clone(), rep: report.New(), log: e.log}

	var removals, edits []Action
	for _, a := range actions {
		if a.Type == RemoveRow {
			removals = append(removals, a)
		} else {
			edits = append(edits, a)
		}
	}

	r.removeRows(removals)
	// Statistics see the table as it is after row removal.
	r.memo = stats.NewMemo(r.t)
	for _, a := range edits {
		r.apply(a)
	}

	r.rep.Finalize(len(actions))
	e.log.Info("Applied action batch",
		zap.Int("actions", len(actions)),
		zap.Int("applied", r.rep.ActionsApplied),
		zap.Int("failed", r.rep.ActionsFailed),
		zap.Int("cellsModified", r.rep.CellsModified),
		zap.Int("rowsRemoved", r.rep.RowsRemoved))
	return r.t, r.rep
}

// ExecuteRaw decodes a serialized table, applies actions and re-encodes it in
// the same format. When the table cannot be read the original bytes are
// returned with a single CriticalInputError.
func (e *Executor) ExecuteRaw(filename string, data []byte, actions []Action, opt table.Options) ([]byte, *report.Report) {
	opt = opt.Detect(filename, data)
	t, err := table.Decode(filename, data, opt)
	if err != nil {
		e.log.Warn("Could not parse input table", zap.String("file", filename), zap.Error(err))
		return data, report.Critical(report.Wrap(report.CriticalInputError, err, "parse table"))
	}
	out, rep := e.Execute(t, actions)
	encoded, err := table.Encode(filename, out, opt)
	if err != nil {
		return data, report.Critical(report.Wrap(report.CriticalInputError, err, "serialize table"))
	}
	return encoded, rep
}

func (r *run) removeRows(removals []Action) {
	var valid []Action
	for _, a := range removals {
		if a.RowNumber == nil {
			r.rep.Failed(resultFor(a, ""), report.Errorf(report.RowOutOfRange, "REMOVE_ROW action %s has no rowNumber", a.ID))
			continue
		}
		valid = append(valid, a)
	}
	sort.SliceStable(valid, func(i, j int) bool { return *valid[i].RowNumber > *valid[j].RowNumber })

	removed := make(map[int]bool, len(valid))
	for _, a := range valid {
		n := *a.RowNumber
		res := resultFor(a, "")
		if removed[n] {
			r.rep.Failed(res, report.Errorf(report.RowOutOfRange, "row %d was already removed by another action", n))
			continue
		}
		if err := r.t.RemoveRow(n); err != nil {
			r.rep.Failed(res, err)
			continue
		}
		removed[n] = true
		res.RowsRemoved = 1
		res.Message = "row removed"
		r.rep.Applied(res)
		r.log.Debug("Removed row", zap.Int("row", n), zap.String("action", a.ID))
	}
}

func (r *run) apply(a Action) {
	res := resultFor(a, "")
	if !a.Type.Valid() {
		r.rep.Failed(res, report.Errorf(report.ParseError, "unsupported action type %q", string(a.Type)))
		return
	}
	col, err := r.t.Resolve(a.ColumnName)
	if err != nil {
		r.rep.Failed(res, err)
		return
	}
	res.Column = col.Name

	var n int
	if a.RowNumber != nil {
		idx, ierr := r.t.RowIndex(*a.RowNumber)
		if ierr != nil {
			r.rep.Failed(res, ierr)
			return
		}
		n, err = r.applyRow(a, col, idx)
	} else {
		n, err = r.applyColumn(a, col)
	}
	if err != nil {
		r.log.Debug("Action failed", zap.String("action", a.ID), zap.String("type", string(a.Type)), zap.Error(err))
		r.rep.Failed(res, err)
		return
	}
	res.CellsModified = n
	if n == 0 {
		res.Message = "no cell needed a change"
	}
	r.rep.Applied(res)
}

// applyRow handles a row-specific action. MODIFY_CELL may land on a different
// row through the fuzzy fallback.
func (r *run) applyRow(a Action, col table.Column, idx int) (int, error) {
	if a.Type == ModifyCell {
		return r.modifyRow(a, col, idx)
	}
	rule, err := r.ruleFor(a, col, true)
	if err != nil {
		return 0, err
	}
	next, write, err := rule(r.t.Get(idx, col))
	if err != nil || !write {
		return 0, err
	}
	return boolCount(r.t.Set(idx, col, next)), nil
}

// applyColumn evaluates the rule for every row before writing anything, so a
// failing cell leaves the whole column untouched.
func (r *run) applyColumn(a Action, col table.Column) (int, error) {
	if a.Type == ModifyCell {
		return r.modifyColumn(a, col)
	}
	rule, err := r.ruleFor(a, col, false)
	if err != nil {
		return 0, err
	}
	type write struct {
		row   int
		value string
	}
	var writes []write
	for i := 0; i < r.t.Len(); i++ {
		next, ok, err := rule(r.t.Get(i, col))
		if err != nil {
			return 0, err
		}
		if ok {
			writes = append(writes, write{i, next})
		}
	}
	n := 0
	for _, w := range writes {
		n += boolCount(r.t.Set(w.row, col, w.value))
	}
	return n, nil
}

func resultFor(a Action, column string) report.Result {
	res := report.Result{ActionID: a.ID, Type: string(a.Type), Column: column}
	if a.RowNumber != nil {
		res.Row = *a.RowNumber
	}
	if res.Column == "" {
		res.Column = a.ColumnName
	}
	return res
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
