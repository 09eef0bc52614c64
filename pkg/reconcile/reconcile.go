// Package reconcile decides which unpaid bookings still have to be billed by comparing
// them with the history of every booking that was ever invoiced. It works on raw
// tables only, so the same rows that are compared here are the ones appended to the
// history later.
package reconcile

import (
	"github.com/yurifrl/courtbill/pkg/compare"
	"github.com/yurifrl/courtbill/pkg/csv"
)

// Status indicates the reconciliation result for a current booking row.
//
//   - Billed: already present in the history.
//   - ToBill: not billed yet.
type Status int

const (
	Billed Status = iota
	ToBill
)

type Entry struct {
	Row    []string
	Status Status
}

type Report struct {
	Header  []string
	Columns []string // columns the identity was computed on
	Items   []Entry
	toBill  [][]string
}

// Build walks the current rows and looks each one up in the history by full-row
// identity over the shared columns. Duplicate rows in current are kept as they are.
func Build(current, history *csv.Table) *Report {
	r := &Report{Header: current.Header}
	if history == nil {
		history = &csv.Table{}
	}
	r.Columns = compare.Columns(current.Header, history.Header)

	billed := make(map[string]struct{}, len(history.Rows))
	if len(r.Columns) > 0 {
		for _, row := range history.Rows {
			billed[compare.Key(history.Header, r.Columns, row)] = struct{}{}
		}
	}

	r.Items = make([]Entry, 0, len(current.Rows))
	for _, row := range current.Rows {
		status := ToBill
		if _, ok := billed[compare.Key(current.Header, r.Columns, row)]; ok && len(r.Columns) > 0 {
			status = Billed
		}
		r.Items = append(r.Items, Entry{Row: row, Status: status})
		if status == ToBill {
			r.toBill = append(r.toBill, row)
		}
	}
	return r
}

// BilledCount returns how many current rows are already in the history.
func (r *Report) BilledCount() int {
	return len(r.Items) - len(r.toBill)
}

// ToBillCount returns how many current rows still need an invoice.
func (r *Report) ToBillCount() int {
	return len(r.toBill)
}

// ToBill returns the rows not billed yet as a table with the current header.
func (r *Report) ToBill() *csv.Table {
	return &csv.Table{Header: r.Header, Rows: r.toBill}
}
