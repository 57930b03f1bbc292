package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/datafix-cli/internal/report"
	"github.com/KaramelBytes/datafix-cli/internal/table"
	"github.com/KaramelBytes/datafix-cli/internal/utils"
)

// outputFlags are shared by the commands that change a table.
type outputFlags struct {
	path string
	diff bool
	json bool
}

func (o *outputFlags) register(c *cobra.Command) {
	c.Flags().StringVarP(&o.path, "output", "o", "", "write the cleaned table to this file (format by extension); default is CSV on stdout")
	c.Flags().BoolVar(&o.diff, "diff", false, "show a line diff of the table before and after")
	c.Flags().BoolVar(&o.json, "json", false, "print the report as JSON on stdout")
}

// input is a table file as read from disk.
type input struct {
	path string
	raw  []byte
	opt  table.Options
	// t is nil and rep holds the failure when raw could not be parsed.
	t   *table.Table
	rep *report.Report
}

func readInput(path string) (*input, error) {
	opt, err := tableOptions()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	in := &input{path: path, raw: raw, opt: opt.Detect(path, raw)}
	t, err := table.Decode(path, raw, in.opt)
	if err != nil {
		logger.Warn("Could not parse input table", zap.String("file", path), zap.Error(err))
		in.rep = report.Critical(report.Wrap(report.CriticalInputError, err, "parse table"))
		return in, nil
	}
	in.t = t
	logger.Debug("Loaded table", zap.String("file", path), zap.Int("rows", t.Len()), zap.Int("columns", len(t.Headers())))
	return in, nil
}

// encode serializes t in the input's own format.
func (in *input) encode(t *table.Table) ([]byte, error) {
	return table.Encode(in.path, t, in.opt)
}

// convert re-encodes data for dest when its extension differs from the input.
func (in *input) convert(data []byte, dest string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(dest), filepath.Ext(in.path)) {
		return data, nil
	}
	t, err := table.Decode(in.path, data, in.opt)
	if err != nil {
		return nil, err
	}
	return table.Encode(dest, t, table.Options{Sheet: in.opt.Sheet})
}

// csvText renders data as delimited text for terminals and diffs.
func (in *input) csvText(data []byte) (string, error) {
	if table.IsText(in.path) {
		return string(data), nil
	}
	t, err := table.Decode(in.path, data, in.opt)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, t, ','); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type jsonOutcome struct {
	Report *report.Report `json:"report"`
	Output string         `json:"output,omitempty"`
	Diff   string         `json:"diff,omitempty"`
	Answer string         `json:"answer,omitempty"`
}

// emit writes the outcome of a run. stdout carries one artifact: the JSON
// document with --json, else the table when no --output is given, else the
// diff. Everything meant for humans goes to stderr.
func emit(cmd *cobra.Command, o *outputFlags, in *input, after []byte, rep *report.Report) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	res := jsonOutcome{Report: rep}
	changed := !rep.InputRejected && !rep.ReadOnly

	var written []byte
	if changed {
		if o.diff {
			before, err := in.csvText(in.raw)
			if err != nil {
				return err
			}
			now, err := in.csvText(after)
			if err != nil {
				return err
			}
			res.Diff = lineDiff(in.path, before, now)
		}
		if o.path != "" {
			data, err := in.convert(after, o.path)
			if err != nil {
				return fmt.Errorf("encode %s: %w", o.path, err)
			}
			if err := utils.SafeWriteFile(o.path, data); err != nil {
				return err
			}
			res.Output = o.path
			written = data
			logger.Info("Wrote table", zap.String("path", o.path), zap.Int("bytes", len(data)))
		}
	}

	if o.json {
		b, err := utils.PrettyJSON(res)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(b))
		return runError(rep)
	}

	diffOut := stderr
	if changed && o.path == "" {
		text, err := in.csvText(after)
		if err != nil {
			return err
		}
		io.WriteString(stdout, text)
	} else {
		diffOut = stdout
	}
	if o.diff && changed {
		if res.Diff == "" {
			fmt.Fprintln(stderr, "(no changes)")
		} else {
			io.WriteString(diffOut, res.Diff)
		}
	}
	printReport(stderr, rep)
	if written != nil {
		fmt.Fprintf(stderr, "✓ Wrote %s (%s)\n", o.path, humanize.Bytes(uint64(len(written))))
	}
	return runError(rep)
}

// runError turns a report into the command's exit status.
func runError(rep *report.Report) error {
	switch {
	case rep.InputRejected:
		return errors.New("input table could not be read, nothing was written")
	case !rep.OK():
		return fmt.Errorf("%s failed", plural(len(rep.Errors), "action"))
	}
	return nil
}

func printReport(w io.Writer, rep *report.Report) {
	mark := "✓"
	switch {
	case rep.InputRejected || rep.ActionsApplied == 0 && len(rep.Errors) > 0:
		mark = "✗"
	case !rep.OK():
		mark = "⚠"
	}
	fmt.Fprintf(w, "%s %s\n", mark, rep.Summary)
	if len(rep.Results) > 0 {
		tw := tablewriter.NewWriter(w)
		tw.SetHeader([]string{"", "Action", "Column", "Row", "Cells", "Rows", "Detail"})
		tw.SetAutoFormatHeaders(false)
		tw.SetAutoWrapText(false)
		for _, r := range rep.Results {
			status, detail := "✓", r.Message
			switch {
			case r.Applied:
			case r.Error != "":
				status, detail = "✗", r.Error
			default:
				status = "·"
			}
			row := ""
			if r.Row > 0 {
				row = strconv.Itoa(r.Row)
			}
			tw.Append([]string{status, r.Type, r.Column, row,
				humanize.Comma(int64(r.CellsModified)), humanize.Comma(int64(r.RowsRemoved)), detail})
		}
		tw.Render()
	} else if rep.InputRejected {
		for _, e := range rep.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "⚠ %s\n", warn)
	}
}

// lineDiff renders a line-oriented diff; runs of unchanged lines longer than
// two are collapsed. It returns "" when nothing changed.
func lineDiff(name, before, after string) string {
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s (before)\n+++ %s (after)\n", name, name)
	for _, d := range diffs {
		text := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writePrefixed(&sb, "-", text)
		case diffmatchpatch.DiffInsert:
			writePrefixed(&sb, "+", text)
		default:
			if len(text) > 2 {
				fmt.Fprintf(&sb, "@@ %s unchanged @@\n", plural(len(text), "line"))
				continue
			}
			writePrefixed(&sb, " ", text)
		}
	}
	return sb.String()
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func writePrefixed(sb *strings.Builder, prefix string, lines []string) {
	for _, l := range lines {
		sb.WriteString(prefix)
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%s %s", humanize.Comma(int64(n)), noun)
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}
