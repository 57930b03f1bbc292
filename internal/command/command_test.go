package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datafix-cli/internal/report"
	"github.com/KaramelBytes/datafix-cli/internal/stats"
	"github.com/KaramelBytes/datafix-cli/internal/table"
)

func values(t *testing.T, tb *table.Table, name string) []string {
	t.Helper()
	c, err := tb.Resolve(name)
	require.NoError(t, err)
	return tb.Values(c)
}

func TestParseClasses(t *testing.T) {
	tests := []struct {
		in   string
		want Intent
	}{
		{"fill the missing values in 'Outlet_Size' with 'Unknown'", Intent{Kind: FillMissing, Column: "Outlet_Size", Value: "Unknown"}},
		{"Fill nulls in City with New York.", Intent{Kind: FillMissing, Column: "City", Value: "New York"}},
		{"replace null with N/A in the City column", Intent{Kind: FillMissing, Column: "City", Value: "N/A"}},
		{"set empty cells in Region to \"EU\"", Intent{Kind: FillMissing, Column: "Region", Value: "EU"}},
		{"fill Outlet_Size with Medium", Intent{Kind: FillMissing, Column: "Outlet_Size", Value: "Medium"}},
		{"set empty City to 'X'", Intent{Kind: FillMissing, Column: "City", Value: "X"}},
		{"fill blank Region cells with EU", Intent{Kind: FillMissing, Column: "Region", Value: "EU"}},
		{"fill missing values in Outlet Size with Unknown", Intent{Kind: FillMissing, Column: "Outlet Size", Value: "Unknown"}},
		{"set empty cells in the Item Fat Content column to 'Low Fat'", Intent{Kind: FillMissing, Column: "Item Fat Content", Value: "Low Fat"}},
		{"replace LF with 'Low Fat' in Item_Fat_Content", Intent{Kind: ReplaceValue, Column: "Item_Fat_Content", Old: "LF", Value: "Low Fat"}},
		{"in Status, change 'pending' to 'Open'", Intent{Kind: ReplaceValue, Column: "Status", Old: "pending", Value: "Open"}},
		{"convert Name to uppercase", Intent{Kind: ChangeCase, Column: "Name", Case: "upper"}},
		{"change values in Name to title case", Intent{Kind: ChangeCase, Column: "Name", Case: "title"}},
		{"lowercase the email column", Intent{Kind: ChangeCase, Column: "email", Case: "lower"}},
		{"capitalize City", Intent{Kind: ChangeCase, Column: "City", Case: "title"}},
		{"fill missing values in Weight with mean", Intent{Kind: FillStatistic, Column: "Weight", Method: stats.Mean}},
		{"fill missing values in Weight with the median value", Intent{Kind: FillStatistic, Column: "Weight", Method: stats.Median}},
		{"replace missing values in Weight with mode", Intent{Kind: FillStatistic, Column: "Weight", Method: stats.Mode}},
		{"impute Weight using average", Intent{Kind: FillStatistic, Column: "Weight", Method: stats.Mean}},
		{"fill missing values in Item Weight with the median", Intent{Kind: FillStatistic, Column: "Item Weight", Method: stats.Median}},
		{"sort by Price descending", Intent{Kind: Sort, Column: "Price", Descending: true}},
		{"sort the table by 'Item Name'", Intent{Kind: Sort, Column: "Item Name"}},
		{"order by Age asc", Intent{Kind: Sort, Column: "Age"}},
		{"remove rows where Age < 18", Intent{Kind: Filter, Column: "Age", Op: OpLt, Value: "18"}},
		{"keep only rows where Country is 'France'", Intent{Kind: Filter, Column: "Country", Op: OpEq, Value: "France", Keep: true}},
		{"delete rows where City is empty", Intent{Kind: Filter, Column: "City", Op: OpEmpty}},
		{"keep rows where Status is not empty", Intent{Kind: Filter, Column: "Status", Op: OpNotEmpty, Keep: true}},
		{"drop rows with missing values in Price", Intent{Kind: Filter, Column: "Price", Op: OpEmpty}},
		{"remove rows where Score is greater than or equal to 90", Intent{Kind: Filter, Column: "Score", Op: OpGe, Value: "90"}},
		{"filter rows where Name contains smith", Intent{Kind: Filter, Column: "Name", Op: OpContains, Value: "smith", Keep: true}},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseQuotedStatisticIsLiteral(t *testing.T) {
	got, ok := Parse("fill missing values in Grade with 'mean'")
	require.True(t, ok)
	assert.Equal(t, FillMissing, got.Kind)
	assert.Equal(t, "mean", got.Value)
}

func TestParseUnrecognized(t *testing.T) {
	for _, in := range []string{"", "   ", "make it better", "SELECT * FROM data"} {
		_, ok := Parse(in)
		assert.False(t, ok, in)
	}
}

func TestApplyFillMissingLeavesExistingValues(t *testing.T) {
	tb := table.MustNew([]string{"Item", "Outlet_Size"},
		[]string{"a", "Medium"}, []string{"b", ""}, []string{"c", "Unknown"}, []string{"d", "NULL"},
	)
	rep := NewRunner(nil).Apply(tb, "fill the missing values in 'Outlet_Size' with 'Unknown'")
	assert.Equal(t, []string{"Medium", "Unknown", "Unknown", "Unknown"}, values(t, tb, "Outlet_Size"))
	assert.Equal(t, 2, rep.CellsModified)
	assert.Equal(t, 1, rep.ActionsApplied)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, "FILL_MISSING", rep.Results[0].Type)

	rep = NewRunner(nil).Apply(tb, "fill the missing values in 'Outlet_Size' with 'Unknown'")
	assert.Equal(t, 0, rep.CellsModified)
	assert.Equal(t, 1, rep.ActionsApplied, "recognized statements with nothing to do still count")
}

func TestApplyPartialColumnMatch(t *testing.T) {
	tb := table.MustNew([]string{"Item_Weight"}, []string{"10"}, []string{""}, []string{"30"})
	rep := NewRunner(nil).Apply(tb, "fill missing values in weight with median")
	assert.Equal(t, []string{"10", "20", "30"}, values(t, tb, "Item_Weight"))
	assert.Equal(t, "Item_Weight", rep.Results[0].Column)
}

func TestApplyReplaceCaseSortFilter(t *testing.T) {
	tb := table.MustNew([]string{"Name", "Fat", "Age"},
		[]string{"bob lee", "LF", "30"},
		[]string{"ann", "low fat", ""},
		[]string{"cy", "lf", "9"},
		[]string{"dee", "Regular", "100"},
	)
	r := NewRunner(nil)

	rep := r.Apply(tb, "replace LF with 'Low Fat' in Fat")
	assert.Equal(t, 2, rep.CellsModified)
	assert.Equal(t, []string{"Low Fat", "low fat", "Low Fat", "Regular"}, values(t, tb, "Fat"))

	r.Apply(tb, "convert Name to title case")
	assert.Equal(t, []string{"Bob Lee", "Ann", "Cy", "Dee"}, values(t, tb, "Name"))

	r.Apply(tb, "sort by Age descending")
	assert.Equal(t, []string{"100", "30", "9", ""}, values(t, tb, "Age"))
	r.Apply(tb, "sort by Age")
	assert.Equal(t, []string{"9", "30", "100", ""}, values(t, tb, "Age"))

	rep = r.Apply(tb, "remove rows where Age > 20")
	assert.Equal(t, 2, rep.RowsRemoved)
	assert.Equal(t, []string{"Cy", "Ann"}, values(t, tb, "Name"))
}

func TestApplyFilterNoMatchReportsZero(t *testing.T) {
	tb := table.MustNew([]string{"Age"}, []string{"1"}, []string{"2"})
	rep := NewRunner(nil).Apply(tb, "remove rows where Age > 50")
	assert.Equal(t, 1, rep.ActionsApplied)
	assert.Equal(t, 0, rep.RowsRemoved)
	assert.Equal(t, 2, tb.Len())
}

func TestApplyErrors(t *testing.T) {
	tb := table.MustNew([]string{"City"}, []string{"Paris"}, []string{""})
	r := NewRunner(nil)

	rep := r.Apply(tb, "fill missing values in Price with 0")
	require.Len(t, rep.Results, 1)
	assert.Equal(t, report.ColumnNotFound, rep.Results[0].Kind)
	assert.Equal(t, 1, rep.ActionsFailed)

	rep = r.Apply(tb, "fill missing values in City with mean")
	assert.Equal(t, report.MissingReplacementValue, rep.Results[0].Kind)

	rep = r.Apply(tb, "please tidy up")
	assert.Equal(t, report.ParseError, rep.Results[0].Kind)
	assert.Contains(t, rep.Summary, "No action matched")
	assert.Equal(t, []string{"Paris", ""}, values(t, tb, "City"))
}

func TestSortCompareKeepsEmptiesLast(t *testing.T) {
	asc, desc := sortCompare(false), sortCompare(true)
	assert.Equal(t, 1, asc("", "a"))
	assert.Equal(t, 1, desc("", "a"))
	assert.Equal(t, -1, asc("2", "10"))
	assert.Equal(t, 1, desc("2", "10"))
	assert.Equal(t, -1, asc("5", "apple"), "numbers before text")
}
