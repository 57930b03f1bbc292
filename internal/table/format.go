package table

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Options tune how tables are decoded and encoded.
type Options struct {
	// Delimiter for delimited text. If 0, it is sniffed from the file name
	// and the header line.
	Delimiter rune
	// Sheet selects an XLSX worksheet by name; empty means the first sheet.
	Sheet string
}

// Detect fills in the delimiter sniffed from data, so that encoding a
// delimited table reproduces the input's separator.
func (o Options) Detect(filename string, data []byte) Options {
	if o.Delimiter == 0 && IsText(filename) {
		head := data
		if len(head) > 4096 {
			head = head[:4096]
		}
		o.Delimiter = SniffDelimiter(filename, head)
	}
	return o
}

// Format reads and writes tables in one on-disk representation.
type Format interface {
	Name() string
	CanHandle(filename string) bool
	Read(r io.Reader, filename string, opt Options) (*Table, error)
	Write(w io.Writer, filename string, t *Table, opt Options) error
}

var registry []Format

// Register adds a format implementation to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// FormatFor selects a format by file name, falling back to delimited text.
func FormatFor(filename string) Format {
	for _, f := range registry {
		if f.CanHandle(filename) {
			return f
		}
	}
	return csvFormat{}
}

// ErrNoHeader indicates input without even a header line.
var ErrNoHeader = errors.New("table has no header line")

// Decode parses raw bytes using the format matching filename.
func Decode(filename string, data []byte, opt Options) (*Table, error) {
	return FormatFor(filename).Read(bytes.NewReader(data), filename, opt)
}

// Encode serializes t using the format matching filename.
func Encode(filename string, t *Table, opt Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := FormatFor(filename).Write(&buf, filename, t, opt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads and decodes a table file.
func Load(path string, opt Options) (*Table, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read table: %w", err)
	}
	t, err := Decode(path, data, opt)
	if err != nil {
		return nil, data, err
	}
	return t, data, nil
}

// IsText reports whether filename maps to a delimited text format.
func IsText(filename string) bool {
	_, ok := FormatFor(filename).(csvFormat)
	return ok
}

func hasSuffixFold(name string, suffixes ...string) bool {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvFormat{})
	Register(xlsxFormat{})
}
