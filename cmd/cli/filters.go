package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/yurifrl/courtbill/pkg/csv"
	"github.com/yurifrl/courtbill/pkg/models"
)

type filters struct {
	startDate string
	endDate   string
	person    string
}

// toFilterFunc turns the command line filters into a booking filter. Dates are
// YYYY-MM-DD like every other date flag and are inclusive.
func (f *filters) toFilterFunc() (csv.FilterFunc[*models.Booking], error) {
	var start, end time.Time
	var err error
	if f.startDate != "" {
		if start, err = time.Parse(time.DateOnly, f.startDate); err != nil {
			return nil, fmt.Errorf("invalid --start %q, want YYYY-MM-DD", f.startDate)
		}
	}
	if f.endDate != "" {
		if end, err = time.Parse(time.DateOnly, f.endDate); err != nil {
			return nil, fmt.Errorf("invalid --end %q, want YYYY-MM-DD", f.endDate)
		}
	}
	person := strings.ToLower(strings.TrimSpace(f.person))

	if start.IsZero() && end.IsZero() && person == "" {
		return nil, nil
	}

	return func(b *models.Booking) bool {
		if !start.IsZero() && b.PurchasedAt.Before(start) {
			return false
		}
		if !end.IsZero() && b.PurchasedAt.After(end) {
			return false
		}
		if person != "" && !strings.Contains(strings.ToLower(b.Person.String()), person) {
			return false
		}
		return true
	}, nil
}
