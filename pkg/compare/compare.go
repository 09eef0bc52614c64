package compare

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// plainNumber matches cells a spreadsheet tool would have read as a number, e.g.
// "2", "2.0" or "82284.0". German decimals ("3,00") are text on both sides and stay
// untouched.
var plainNumber = regexp.MustCompile(`^[-+]?\d+(\.\d+)?$`)

// unit separates cells inside a row key; it cannot occur in exported text.
const unit = "\x1f"

// Cell normalizes a single value so that renderings of the same value written by
// different tools compare equal: surrounding blanks are dropped and plain numbers are
// rendered without leading or trailing zeros.
func Cell(s string) string {
	s = strings.TrimSpace(s)
	if plainNumber.MatchString(s) {
		if d, err := decimal.NewFromString(s); err == nil {
			return d.String()
		}
	}
	return s
}

// Columns returns the columns of a that also occur in b, in the order of a.
func Columns(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, col := range b {
		in[col] = struct{}{}
	}
	var out []string
	for _, col := range a {
		if _, ok := in[col]; ok {
			out = append(out, col)
		}
	}
	return out
}

// Key builds the identity of row, laid out under header, over the given columns.
// Two rows are the same booking iff their keys are equal.
func Key(header, columns, row []string) string {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		if _, dup := idx[col]; !dup {
			idx[col] = i
		}
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		if j, ok := idx[col]; ok && j < len(row) {
			parts[i] = Cell(row[j])
		}
	}
	return strings.Join(parts, unit)
}
