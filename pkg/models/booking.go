package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// PurchaseLayout is how Courtbooking writes Kaufdatum.
	PurchaseLayout = "02.01.2006 15:04"
	// DateLayout is the German calendar date used in invoice texts.
	DateLayout = "02.01.2006"
)

// Booking is one consumption row of the bookings export after type conversion.
type Booking struct {
	Person      PersonKey
	PurchasedAt time.Time // calendar date, time of day dropped
	Item        string
	Quantity    int
	Price       decimal.Decimal // row total as exported, not a unit price
	Raw         []string
	Line        int
}

// BookingBuilder converts raw cells into a Booking, collecting the first conversion
// error so that callers can chain setters.
type BookingBuilder struct {
	b   Booking
	err error
}

func NewBooking() *BookingBuilder {
	return &BookingBuilder{}
}

func (bb *BookingBuilder) SetPerson(first, last string) *BookingBuilder {
	bb.b.Person = NewPersonKey(first, last)
	return bb
}

func (bb *BookingBuilder) SetPurchaseDate(s string) *BookingBuilder {
	if bb.err != nil {
		return bb
	}
	d, err := ParsePurchaseDate(s)
	if err != nil {
		bb.err = err
		return bb
	}
	bb.b.PurchasedAt = d
	return bb
}

func (bb *BookingBuilder) SetItem(item string) *BookingBuilder {
	bb.b.Item = trim(item)
	return bb
}

func (bb *BookingBuilder) SetQuantity(s string) *BookingBuilder {
	if bb.err != nil {
		return bb
	}
	q, err := ParseQuantity(s)
	if err != nil {
		bb.err = err
		return bb
	}
	bb.b.Quantity = q
	return bb
}

func (bb *BookingBuilder) SetPrice(s string) *BookingBuilder {
	if bb.err != nil {
		return bb
	}
	p, err := ParsePrice(s)
	if err != nil {
		bb.err = err
		return bb
	}
	bb.b.Price = p
	return bb
}

func (bb *BookingBuilder) SetRaw(row []string) *BookingBuilder {
	bb.b.Raw = append([]string(nil), row...)
	return bb
}

func (bb *BookingBuilder) SetLineNumber(n int) *BookingBuilder {
	bb.b.Line = n
	return bb
}

func (bb *BookingBuilder) Build() (*Booking, error) {
	if bb.err != nil {
		return nil, bb.err
	}
	if bb.b.Person.FirstName == "" || bb.b.Person.LastName == "" {
		return nil, fmt.Errorf("%w: Vorname/Nachname", ErrMissingField)
	}
	if bb.b.PurchasedAt.IsZero() {
		return nil, fmt.Errorf("%w: Kaufdatum", ErrMissingField)
	}
	b := bb.b
	return &b, nil
}

// ParsePurchaseDate reads "01.12.2024 10:00" (or a bare "01.12.2024") and keeps the
// calendar date only.
func ParsePurchaseDate(s string) (time.Time, error) {
	s = trim(s)
	for _, layout := range []string{PurchaseLayout, DateLayout, "02.01.2006 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: purchase date %q", ErrValue, s)
}

// ParsePrice reads German decimal notation ("3,00", "1.234,50") and plain decimals.
// Prices are whole cents.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q", ErrValue, s)
	}
	if !d.Round(2).Equal(d) {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q has more than two decimals", ErrValue, s)
	}
	return d, nil
}

// ParseQuantity accepts integral counts, including float renderings such as "2.0".
func ParseQuantity(s string) (int, error) {
	d, err := decimal.NewFromString(trim(s))
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("%w: quantity %q", ErrValue, s)
	}
	return int(d.IntPart()), nil
}

// Date truncates t to its calendar date in UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
