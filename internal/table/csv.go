package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

type csvFormat struct{}

func (csvFormat) Name() string { return "csv" }

func (csvFormat) CanHandle(filename string) bool {
	return hasSuffixFold(filename, ".csv", ".tsv", ".txt")
}

func (csvFormat) Read(r io.Reader, filename string, opt Options) (*Table, error) {
	br := bufio.NewReader(r)
	delim := opt.Delimiter
	if delim == 0 {
		head, _ := br.Peek(4096)
		delim = SniffDelimiter(filename, head)
	}
	return ReadCSV(br, delim)
}

func (csvFormat) Write(w io.Writer, filename string, t *Table, opt Options) error {
	delim := opt.Delimiter
	if delim == 0 {
		delim = SniffDelimiter(filename, nil)
	}
	return WriteCSV(w, t, delim)
}

// ReadCSV parses delimited text with a header line. Short records are padded
// and long records truncated to the header width.
func ReadCSV(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{headers: uniqueHeaders(header)}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", t.Len()+1, err)
		}
		t.AppendRow(rec)
	}
	return t, nil
}

// WriteCSV serializes the table with a header line. Output is stable: reading
// it back and writing again yields identical bytes.
func WriteCSV(w io.Writer, t *Table, delim rune) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	cw.Comma = delim
	write := func(rec []string) error {
		// A lone empty field would serialize as a blank line, which readers skip.
		if len(rec) == 1 && rec[0] == "" {
			cw.Flush()
			_, err := bw.WriteString("\"\"\n")
			return err
		}
		return cw.Write(rec)
	}
	if err := write(t.headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range t.rows {
		if err := write(r); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return bw.Flush()
}

// SniffDelimiter picks a delimiter from the file extension, or else from the
// most frequent candidate in the first line of head. Comma is the default.
func SniffDelimiter(filename string, head []byte) rune {
	if hasSuffixFold(filename, ".tsv") {
		return '\t'
	}
	line := string(head)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

// ParseDelimiter maps a user-facing delimiter name to a rune; "" and "auto"
// return 0 so the reader sniffs it.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "\t", "tab", `\t`:
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported delimiter: %s (use ','|';'|'tab'|'|'|auto)", s)
}
