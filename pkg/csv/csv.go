package csv

import (
	"bytes"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Separator used by every Courtbooking export.
const Separator = ';'

// Table is a raw export: the header line plus every data row as read, without any
// type conversion. Rows are padded or truncated to the header width.
type Table struct {
	Header []string
	Rows   [][]string
}

type FilterFunc[T any] func(T) bool

// Filter returns the records accepted by filter. A nil filter accepts everything.
func Filter[T any](records []T, filter FilterFunc[T]) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if filter == nil || filter(r) {
			out = append(out, r)
		}
	}
	return out
}

// Encoding resolves an encoding name from the configuration. Empty means latin1,
// which is what Courtbooking writes.
func Encoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	case "utf8", "utf-8":
		return unicode.UTF8, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// Read decodes data with enc and parses it as a semicolon separated table.
func Read(data []byte, enc encoding.Encoding) (*Table, error) {
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode csv: %w", err)
	}
	decoded = bytes.TrimPrefix(decoded, []byte("\ufeff"))

	r := stdcsv.NewReader(bytes.NewReader(decoded))
	r.Comma = Separator
	r.FieldsPerRecord = -1 // exports end rows early when trailing cells are empty
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv is empty")
	}

	return NewTable(records[0], records[1:]), nil
}

// NewTable builds a table and normalizes every row to the header width.
func NewTable(header []string, rows [][]string) *Table {
	h := make([]string, len(header))
	for i, col := range header {
		h[i] = strings.TrimSpace(col)
	}
	t := &Table{Header: h, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, fit(row, len(h)))
	}
	return t
}

// Write encodes the table with enc as a semicolon separated file.
func Write(w io.Writer, t *Table, enc encoding.Encoding) error {
	var buf bytes.Buffer
	cw := stdcsv.NewWriter(&buf)
	cw.Comma = Separator

	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("error writing CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	encoded, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes(buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}
	_, err = w.Write(encoded)
	return err
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	for i, h := range t.Header {
		if h == column {
			return i
		}
	}
	return -1
}

// Value returns the cell of row under column, or "" when the column is missing.
func (t *Table) Value(row []string, column string) string {
	i := t.Index(column)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Rebase maps row, laid out under from, onto the header of t by column name.
// Columns unknown to from are left empty.
func (t *Table) Rebase(from []string, row []string) []string {
	out := make([]string, len(t.Header))
	for i, col := range t.Header {
		for j, src := range from {
			if src == col && j < len(row) {
				out[i] = row[j]
				break
			}
		}
	}
	return out
}

// Records returns a reader over the data rows, suitable for csvutil decoders.
func (t *Table) Records() *RowReader {
	return &RowReader{rows: t.Rows}
}

// RowReader replays in-memory rows through the Read method of encoding/csv.
type RowReader struct {
	rows [][]string
	pos  int
}

func (r *RowReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func fit(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
