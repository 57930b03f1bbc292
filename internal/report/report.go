// Package report defines the outcome record shared by the mutation engine and
// both text front ends: counters, a summary sentence, errors and per-action
// results.
package report

import (
	"fmt"
	"strings"
)

// Result is the outcome of a single action or statement.
type Result struct {
	ActionID      string `json:"actionId,omitempty"`
	Type          string `json:"type"`
	Column        string `json:"column,omitempty"`
	Row           int    `json:"row,omitempty"`
	Applied       bool   `json:"applied"`
	CellsModified int    `json:"cellsModified"`
	RowsRemoved   int    `json:"rowsRemoved"`
	Message       string `json:"message,omitempty"`
	Kind          Kind   `json:"kind,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Report aggregates the results of one run.
type Report struct {
	ActionsApplied int      `json:"actionsApplied"`
	ActionsFailed  int      `json:"actionsFailed"`
	CellsModified  int      `json:"cellsModified"`
	RowsRemoved    int      `json:"rowsRemoved"`
	Summary        string   `json:"summary"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings,omitempty"`
	Results        []Result `json:"results"`
	// ReadOnly marks statements that were recognized but not executed locally.
	ReadOnly bool `json:"readOnly,omitempty"`
	// InputRejected marks a run that never started because the table could
	// not be read; the output equals the input.
	InputRejected bool `json:"inputRejected,omitempty"`
}

// New returns an empty report with non-nil slices so JSON output is stable.
func New() *Report {
	return &Report{Errors: []string{}, Results: []Result{}}
}

// Applied records a successful result.
func (r *Report) Applied(res Result) {
	res.Applied = true
	res.Kind = ""
	res.Error = ""
	r.ActionsApplied++
	r.CellsModified += res.CellsModified
	r.RowsRemoved += res.RowsRemoved
	r.Results = append(r.Results, res)
}

// Failed records a failed result and appends err to the error list.
func (r *Report) Failed(res Result, err error) {
	res.Applied = false
	res.CellsModified = 0
	res.RowsRemoved = 0
	res.Kind = KindOf(err)
	res.Error = Describe(err)
	r.Errors = append(r.Errors, res.Error)
	r.Results = append(r.Results, res)
}

// Warn appends a non-fatal note.
func (r *Report) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Critical resets the report to a single top-level failure.
func Critical(err error) *Report {
	r := New()
	r.InputRejected = true
	r.Errors = append(r.Errors, Describe(err))
	r.Summary = "No changes applied: the input table could not be read. " + Describe(err)
	return r
}

// Finalize derives ActionsFailed from the total number of submitted actions
// and renders the summary sentence.
func (r *Report) Finalize(total int) *Report {
	r.ActionsFailed = total - r.ActionsApplied
	if r.ActionsFailed < 0 {
		r.ActionsFailed = 0
	}
	r.Summary = r.summarize(total)
	return r
}

func (r *Report) summarize(total int) string {
	var b strings.Builder
	switch {
	case total == 0:
		b.WriteString("No actions to apply.")
	case r.ActionsApplied == 0:
		fmt.Fprintf(&b, "No changes applied: all %s failed.", plural(total, "action"))
	default:
		fmt.Fprintf(&b, "Applied %d of %s: %s modified, %s removed.",
			r.ActionsApplied, plural(total, "action"), plural(r.CellsModified, "cell"), plural(r.RowsRemoved, "row"))
	}
	if n := len(r.Errors); n > 0 {
		fmt.Fprintf(&b, " %s occurred.", plural(n, "error"))
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// OK reports whether every submitted action succeeded.
func (r *Report) OK() bool { return r.ActionsFailed == 0 && len(r.Errors) == 0 }
