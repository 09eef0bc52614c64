package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/yurifrl/courtbill/pkg/csv"
	"github.com/yurifrl/courtbill/pkg/models"
)

type rosterRow struct {
	FirstName  string `csv:"Vorname"`
	LastName   string `csv:"Nachname"`
	Gender     string `csv:"Geschlecht"`
	PostalCode string `csv:"PLZ"`
	Phone      string `csv:"Telefonnummer"`
	Mobile     string `csv:"Handynummer"`
	Street     string `csv:"Straße"`
	City       string `csv:"Ort"`
	Email      string `csv:"E-Mail"`
}

// Roster converts the membership list. Only the name columns are mandatory; every
// other column may be absent from the export.
func (p *Parser) Roster(t *csv.Table) ([]models.RosterEntry, error) {
	for _, col := range []string{"Vorname", "Nachname"} {
		if t.Index(col) < 0 {
			return nil, fmt.Errorf("%w: roster column %s", models.ErrMissingField, col)
		}
	}

	dec, err := csvutil.NewDecoder(t.Records(), t.Header...)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	var entries []models.RosterEntry
	for {
		var row rosterRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode roster: %w", err)
		}
		entries = append(entries, models.RosterEntry{
			Person:     models.NewPersonKey(row.FirstName, row.LastName),
			Gender:     row.Gender,
			PostalCode: row.PostalCode,
			Phone:      row.Phone,
			Mobile:     row.Mobile,
			Street:     row.Street,
			City:       row.City,
			Email:      row.Email,
		})
	}

	p.logger.Debug("roster loaded", "entries", len(entries))
	return entries, nil
}
