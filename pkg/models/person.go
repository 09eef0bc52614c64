package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PersonKey identifies a person by first and last name. Equality is exact: case and
// inner whitespace are significant, only surrounding blanks are trimmed on input.
type PersonKey struct {
	FirstName string
	LastName  string
}

func NewPersonKey(first, last string) PersonKey {
	return PersonKey{FirstName: trim(first), LastName: trim(last)}
}

func (k PersonKey) String() string {
	return k.FirstName + " " + k.LastName
}

// Less orders keys by first name, then last name.
func (k PersonKey) Less(o PersonKey) bool {
	if k.FirstName != o.FirstName {
		return k.FirstName < o.FirstName
	}
	return k.LastName < o.LastName
}

// Day collects everything a person bought on one purchase date. The three lists are
// parallel: Items[i] was bought Quantities[i] times for Prices[i].
type Day struct {
	Date       time.Time
	Items      []string
	Quantities []int
	Prices     []decimal.Decimal
}

func (d Day) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.Prices {
		total = total.Add(p)
	}
	return total
}

func (d Day) Quantity() int {
	n := 0
	for _, q := range d.Quantities {
		n += q
	}
	return n
}

// DistinctItems returns the item names of the day without repetitions, in the order
// they were first bought.
func (d Day) DistinctItems() []string {
	seen := make(map[string]struct{}, len(d.Items))
	out := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Consumption is the per-person aggregate: every purchase date in ascending order and
// the source bookings it was built from.
type Consumption struct {
	Person   PersonKey
	Days     []Day
	Bookings []*Booking
}

func (c *Consumption) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range c.Days {
		total = total.Add(d.Total())
	}
	return total
}

// RawRows returns the unconverted export rows covered by this aggregate.
func (c *Consumption) RawRows() [][]string {
	out := make([][]string, len(c.Bookings))
	for i, b := range c.Bookings {
		out[i] = b.Raw
	}
	return out
}
