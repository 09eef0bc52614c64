package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/yurifrl/courtbill/pkg/csv"
	"github.com/yurifrl/courtbill/pkg/models"
)

const (
	ColumnPaid = "Gezahlt"
	// Unpaid is the Gezahlt value of bookings that still have to be billed.
	Unpaid = "Nicht gezahlt"
)

type bookingRow struct {
	PurchaseDate string `csv:"Kaufdatum"`
	FirstName    string `csv:"Vorname"`
	LastName     string `csv:"Nachname"`
	Item         string `csv:"Getränk"`
	Quantity     string `csv:"Anzahl"`
	Price        string `csv:"Preis"`
}

// BookingSet is the outcome of converting raw rows. Persons with at least one row that
// failed conversion are listed in Rejected and none of their rows appear in Bookings.
type BookingSet struct {
	Bookings []*models.Booking
	Rejected map[models.PersonKey]error
}

// Unpaid returns a table holding only the rows not paid yet.
func (p *Parser) Unpaid(t *csv.Table) (*csv.Table, error) {
	idx := t.Index(ColumnPaid)
	if idx < 0 {
		return nil, fmt.Errorf("%w: column %s", models.ErrMissingField, ColumnPaid)
	}
	out := &csv.Table{Header: t.Header}
	for _, row := range t.Rows {
		if strings.TrimSpace(row[idx]) == Unpaid {
			out.Rows = append(out.Rows, row)
		}
	}
	p.logger.Debug("filtered unpaid bookings", "total", len(t.Rows), "unpaid", len(out.Rows))
	return out, nil
}

// Bookings converts the rows of t into bookings.
func (p *Parser) Bookings(t *csv.Table) (*BookingSet, error) {
	dec, err := csvutil.NewDecoder(t.Records(), t.Header...)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	dec.DisallowMissingColumns = true

	set := &BookingSet{Rejected: make(map[models.PersonKey]error)}
	var all []*models.Booking
	for line := 2; ; line++ {
		var row bookingRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var missing *csvutil.MissingColumnsError
			if errors.As(err, &missing) {
				return nil, fmt.Errorf("%w: columns %s", models.ErrMissingField, strings.Join(missing.Columns, ", "))
			}
			return nil, fmt.Errorf("failed to decode line %d: %w", line, err)
		}

		b, err := models.NewBooking().
			SetPerson(row.FirstName, row.LastName).
			SetPurchaseDate(row.PurchaseDate).
			SetItem(row.Item).
			SetQuantity(row.Quantity).
			SetPrice(row.Price).
			SetRaw(dec.Record()).
			SetLineNumber(line).
			Build()
		if err != nil {
			key := models.NewPersonKey(row.FirstName, row.LastName)
			if key.FirstName == "" || key.LastName == "" {
				p.logger.Warn("booking without buyer name, skipping", "line", line, "err", err)
				continue
			}
			if _, seen := set.Rejected[key]; !seen {
				set.Rejected[key] = fmt.Errorf("line %d: %w", line, err)
			}
			p.logger.Debug("failed to build booking", "line", line, "person", key, "err", err)
			continue
		}
		all = append(all, b)
	}

	for _, b := range all {
		if _, rejected := set.Rejected[b.Person]; rejected {
			continue
		}
		set.Bookings = append(set.Bookings, b)
	}

	p.logger.Info("booking conversion complete", "bookings", len(set.Bookings), "rejected_persons", len(set.Rejected), "rows", len(t.Rows))
	return set, nil
}
