package table

import (
	"fmt"
	"strings"
)

// ColumnNotFoundError is returned by Resolve when no header matches.
type ColumnNotFoundError struct {
	Name      string
	Available []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// RowOutOfRangeError reports a 1-based row number outside the table.
type RowOutOfRangeError struct {
	Row  int
	Rows int
}

func (e *RowOutOfRangeError) Error() string {
	return fmt.Sprintf("row %d is out of range (table has %d rows)", e.Row, e.Rows)
}
