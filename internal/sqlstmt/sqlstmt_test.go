package sqlstmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datafix-cli/internal/report"
	"github.com/KaramelBytes/datafix-cli/internal/table"
)

func sample() *table.Table {
	return table.MustNew([]string{"Name", "Status", "Age"},
		[]string{"a", "pending", "17"},
		[]string{"b", "In Review", "30"},
		[]string{"c", "done", "45"},
		[]string{"d", "Pending ", ""},
		[]string{"e", "rejected", "n/a"},
	)
}

func column(t *testing.T, tb *table.Table, name string) []string {
	t.Helper()
	c, err := tb.Resolve(name)
	require.NoError(t, err)
	return tb.Values(c)
}

func TestParseShapes(t *testing.T) {
	st, err := Parse("UPDATE data SET Status = 'it''s ok' WHERE Status IN ('pending', \"x\", 3);")
	require.NoError(t, err)
	assert.Equal(t, Update, st.Kind)
	assert.Equal(t, "data", st.Table)
	assert.Equal(t, "Status", st.Column)
	assert.Equal(t, "it's ok", st.Value)
	require.NotNil(t, st.Where)
	assert.Equal(t, OpIn, st.Where.Op)
	assert.Equal(t, []string{"pending", "x", "3"}, st.Where.Values)

	st, err = Parse("update [my table] set `Age` = 18")
	require.NoError(t, err)
	assert.Equal(t, "my table", st.Table)
	assert.Equal(t, "Age", st.Column)
	assert.Equal(t, "18", st.Value)
	assert.Nil(t, st.Where)

	st, err = Parse("DELETE FROM data WHERE Age >= 40")
	require.NoError(t, err)
	assert.Equal(t, OpGe, st.Where.Op)
	assert.Equal(t, 40.0, st.Where.Number)

	st, err = Parse("DELETE FROM data WHERE Age = 30")
	require.NoError(t, err)
	assert.Equal(t, OpNumEq, st.Where.Op)

	st, err = Parse("UPDATE data SET Name = 'x' WHERE Age = 30")
	require.NoError(t, err)
	assert.Equal(t, OpEq, st.Where.Op, "numeric comparison is DELETE only")

	st, err = Parse("  select count(*) from data  ")
	require.NoError(t, err)
	assert.Equal(t, Select, st.Kind)
}

func TestParseErrors(t *testing.T) {
	for sql, kind := range map[string]report.Kind{
		"":                                           report.ParseError,
		"DELETE FROM data":                           report.UnsupportedStatement,
		"delete from data;":                          report.UnsupportedStatement,
		"INSERT INTO data VALUES (1)":                report.UnsupportedStatement,
		"DROP TABLE data":                            report.UnsupportedStatement,
		"UPDATE data SET Status":                     report.ParseError,
		"UPDATE data SET Age = 5 WHERE Age > 3":      report.ParseError,
		"DELETE FROM data WHERE Age BETWEEN 1 AND 2": report.ParseError,
		"DELETE FROM data WHERE Status IN ()":        report.ParseError,
	} {
		_, err := Parse(sql)
		require.Error(t, err, sql)
		assert.Equal(t, kind, report.KindOf(err), sql)
	}
}

func TestUpdateWithInIsCaseInsensitive(t *testing.T) {
	tb := sample()
	rep := NewRunner(nil).Exec(tb, "UPDATE data SET Status = 'Approved' WHERE Status IN ('pending','in review')")
	assert.Equal(t, []string{"Approved", "Approved", "done", "Approved", "rejected"}, column(t, tb, "Status"))
	assert.Equal(t, 3, rep.CellsModified)
	assert.Equal(t, 1, rep.ActionsApplied)
	assert.Empty(t, rep.Errors)
}

func TestDeleteWithoutWhereIsRejected(t *testing.T) {
	tb := sample()
	rep := NewRunner(nil).Exec(tb, "DELETE FROM data")
	assert.Equal(t, 5, tb.Len())
	assert.Equal(t, 0, rep.RowsRemoved)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, report.UnsupportedStatement, rep.Results[0].Kind)
	assert.Equal(t, 1, rep.ActionsFailed)
}

func TestDeleteNumericComparisonSkipsNonNumbers(t *testing.T) {
	tb := sample()
	rep := NewRunner(nil).Exec(tb, "DELETE FROM data WHERE Age < 18")
	assert.Equal(t, 1, rep.RowsRemoved)
	assert.Equal(t, []string{"b", "c", "d", "e"}, column(t, tb, "Name"))
}

func TestDeleteEquality(t *testing.T) {
	tb := sample()
	rep := NewRunner(nil).Exec(tb, "DELETE FROM data WHERE Status = 'PENDING'")
	assert.Equal(t, 2, rep.RowsRemoved)
	assert.Equal(t, []string{"b", "c", "e"}, column(t, tb, "Name"))
}

func TestUpdateWithoutWhereTouchesEveryRow(t *testing.T) {
	tb := sample()
	rep := NewRunner(nil).Exec(tb, "UPDATE data SET Status = 'done'")
	assert.Equal(t, 4, rep.CellsModified)
}

func TestCaseInsensitiveColumnWarns(t *testing.T) {
	tb := sample()
	rep := NewRunner(nil).Exec(tb, "UPDATE data SET status = 'x' WHERE name = 'a'")
	assert.Equal(t, 1, rep.CellsModified)
	assert.Len(t, rep.Warnings, 2)
	assert.Equal(t, "x", column(t, tb, "Status")[0])
}

func TestUnknownColumnIsHardError(t *testing.T) {
	tb := sample()
	before := tb.Clone()
	rep := NewRunner(nil).Exec(tb, "UPDATE data SET Status = 'x' WHERE Colour = 'red'")
	assert.True(t, before.Equal(tb))
	assert.Equal(t, report.ColumnNotFound, rep.Results[0].Kind)
}

func TestTableNameCollisionWarns(t *testing.T) {
	tb := sample()
	rep := NewRunner(nil).Exec(tb, "DELETE FROM Status WHERE Name = 'a'")
	assert.Equal(t, 1, rep.RowsRemoved)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "also a column name")
}

func TestSelectIsReadOnly(t *testing.T) {
	tb := sample()
	rep := NewRunner(nil).Exec(tb, "SELECT * FROM data WHERE Age > 20")
	assert.True(t, rep.ReadOnly)
	assert.Equal(t, 5, tb.Len())
	assert.Empty(t, rep.Errors)
	assert.Equal(t, 0, rep.ActionsApplied)
}

func TestIsNullMatchesEmptyCells(t *testing.T) {
	st, err := Parse("UPDATE stores SET Outlet_Size = 'Medium' WHERE Outlet_Size IS NULL")
	require.NoError(t, err)
	require.NotNil(t, st.Where)
	assert.Equal(t, OpIsNull, st.Where.Op)
	assert.Equal(t, "Outlet_Size", st.Where.Column)

	st, err = Parse("DELETE FROM data WHERE [Age] is not null")
	require.NoError(t, err)
	assert.Equal(t, OpNotNull, st.Where.Op)
	assert.Equal(t, "Age", st.Where.Column)

	tb := sample()
	rep := NewRunner(nil).Exec(tb, "UPDATE data SET Age = '0' WHERE Age IS NULL")
	assert.Empty(t, rep.Errors)
	assert.Equal(t, 2, rep.CellsModified, "blank and n/a both count as empty")
	assert.Equal(t, []string{"17", "30", "45", "0", "0"}, column(t, tb, "Age"))

	tb = sample()
	rep = NewRunner(nil).Exec(tb, "DELETE FROM data WHERE Age IS NOT NULL")
	assert.Equal(t, 3, rep.RowsRemoved)
	assert.Equal(t, []string{"d", "e"}, column(t, tb, "Name"))
}

func TestDeleteNotEqualNumber(t *testing.T) {
	for _, sql := range []string{"DELETE FROM data WHERE Age != 30", "DELETE FROM data WHERE Age <> 30"} {
		st, err := Parse(sql)
		require.NoError(t, err, sql)
		assert.Equal(t, OpNe, st.Where.Op, sql)

		tb := sample()
		rep := NewRunner(nil).Exec(tb, sql)
		assert.Equal(t, 2, rep.RowsRemoved, sql)
		assert.Equal(t, []string{"b", "d", "e"}, column(t, tb, "Name"), sql)
	}
}
