package table

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxFormat struct{}

func (xlsxFormat) Name() string { return "xlsx" }

func (xlsxFormat) CanHandle(filename string) bool {
	return hasSuffixFold(filename, ".xlsx", ".xlsm")
}

// Read loads the selected worksheet; the first row is the header.
func (xlsxFormat) Read(r io.Reader, filename string, opt Options) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found in workbook (available: %s)", sheet, strings.Join(f.GetSheetList(), ", "))
	}
	if sheet == "" {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	t := &Table{headers: uniqueHeaders(rows[0])}
	for _, rec := range rows[1:] {
		t.AppendRow(rec)
	}
	return t, nil
}

// Write stores every cell as a string in a single worksheet.
func (xlsxFormat) Write(w io.Writer, filename string, t *Table, opt Options) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	} else if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	put := func(rowNum int, rec []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(rec))
		for i, v := range rec {
			vals[i] = v
		}
		return f.SetSheetRow(sheet, cell, &vals)
	}
	if err := put(1, t.headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range t.rows {
		if err := put(i+2, r); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
