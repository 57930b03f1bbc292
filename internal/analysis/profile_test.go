package analysis

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/datafix-cli/internal/table"
)

func fixture() *table.Table {
	return table.MustNew([]string{"Item", "Weight", "Fat", "Date", "Note"},
		[]string{"FDA15", "9.3", "Low Fat", "2024-01-05", "first shipment of the season"},
		[]string{"DRC01", "", "Regular", "2024-01-06", "arrived late, box damaged in transit"},
		[]string{"FDN15", "17.5", "low fat", "01/07/2024", "ok"},
		[]string{"FDX07", "N/A", "LF", "2024-01-08", "customer asked for a refund later"},
		[]string{"NCD19", "8.93", "Low Fat", "2024-01-09", "restocked after inventory count"},
		[]string{"FDP36", "abc", "Regular", "", "n/a"},
	)
}

func column(t *testing.T, rep *Report, name string) ColumnSummary {
	t.Helper()
	for _, c := range rep.Cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %s not in report", name)
	return ColumnSummary{}
}

func TestProfileKindsAndCounts(t *testing.T) {
	opt := DefaultOptions()
	opt.Name = "items.csv"
	opt.SampleRows = 2
	rep := Profile(fixture(), opt)

	if rep.Rows != 6 || len(rep.Cols) != 5 || len(rep.Samples) != 2 {
		t.Fatalf("unexpected shape rows=%d cols=%d samples=%d", rep.Rows, len(rep.Cols), len(rep.Samples))
	}

	w := column(t, rep, "Weight")
	if w.Kind != KindNumeric {
		t.Fatalf("Weight kind = %s", w.Kind)
	}
	if w.Missing != 2 || w.Placeholders != 1 {
		t.Fatalf("Weight missing=%d placeholders=%d", w.Missing, w.Placeholders)
	}
	if w.Invalid != 1 || w.InvalidExample != "abc" {
		t.Fatalf("Weight invalid=%d example=%q", w.Invalid, w.InvalidExample)
	}
	if w.Min != 8.93 || w.Max != 17.5 || w.Median != 9.3 {
		t.Fatalf("Weight stats min=%v max=%v median=%v", w.Min, w.Max, w.Median)
	}

	fat := column(t, rep, "Fat")
	if fat.Kind != KindCategorical {
		t.Fatalf("Fat kind = %s", fat.Kind)
	}
	if fat.TopValues[0].Value != "Low Fat" || fat.TopValues[0].Count != 2 {
		t.Fatalf("Fat top = %+v", fat.TopValues)
	}
	if len(fat.Variants) != 1 || strings.Join(fat.Variants[0], ",") != "Low Fat,low fat" {
		t.Fatalf("Fat variants = %v", fat.Variants)
	}

	d := column(t, rep, "Date")
	if d.Kind != KindDatetime || d.DateLayouts != 2 || d.Missing != 1 {
		t.Fatalf("Date summary = %+v", d)
	}

	if column(t, rep, "Note").Kind != KindText {
		t.Fatalf("Note should be text")
	}
}

func TestProfileOutliers(t *testing.T) {
	tb := table.MustNew([]string{"Score"})
	for _, v := range []string{"10", "11", "9.5", "10.5", "9.8", "10.2", "8.8", "9.7", "50"} {
		tb.AppendRow([]string{v})
	}
	rep := Profile(tb, DefaultOptions())
	s := column(t, rep, "Score")
	if s.Outliers != 1 || s.OutlierThreshold != 3.5 {
		t.Fatalf("outliers=%d threshold=%v", s.Outliers, s.OutlierThreshold)
	}
	opt := DefaultOptions()
	opt.OutlierThreshold = 0
	if column(t, Profile(tb, opt), "Score").Outliers != 0 {
		t.Fatalf("outlier detection should be disabled")
	}
}

func TestMarkdownSections(t *testing.T) {
	opt := DefaultOptions()
	opt.Name = "items.csv"
	md := Profile(fixture(), opt).Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: items.csv",
		"Rows: 6",
		"Columns: 5",
		"[SCHEMA]",
		"- Weight: numeric (non-null 4, missing 33.3%)",
		"[DATA QUALITY]",
		"Weight: 2 missing value(s) (1 written as placeholders like N/A)",
		`Weight: 1 non-numeric value(s) in a numeric column, e.g. "abc"`,
		`Fat: inconsistent spellings "Low Fat" / "low fat"`,
		"Date: dates use 2 different formats",
		"[HEAD AND SAMPLE ROWS]",
		"| Row | Item | Weight | Fat | Date | Note |",
		"| 1 | FDA15 | 9.3 | Low Fat |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestProfileEmptyTable(t *testing.T) {
	rep := Profile(table.MustNew([]string{"A"}), DefaultOptions())
	if rep.Cols[0].Kind != KindEmpty {
		t.Fatalf("kind = %s", rep.Cols[0].Kind)
	}
	if len(rep.Issues()) != 0 {
		t.Fatalf("empty table should have no issues: %v", rep.Issues())
	}
	if !strings.Contains(rep.Markdown(), "table has no data rows") {
		t.Fatalf("expected note about empty table")
	}
}

func TestSafeValEscapesPipes(t *testing.T) {
	if got := safeVal("a|b\nc"); got != "a/b c" {
		t.Fatalf("safeVal = %q", got)
	}
	if got := clip(strings.Repeat("x", 100), 10); got != "xxxxxxx..." {
		t.Fatalf("clip = %q", got)
	}
}
