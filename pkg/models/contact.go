package models

import (
	"fmt"
	"strings"
)

// Group is the classification of a directory contact by its contact group tag.
type Group int

const (
	GroupUnknown Group = iota
	GroupMember
	GroupGuest
)

func (g Group) String() string {
	switch g {
	case GroupMember:
		return "Mitglied"
	case GroupGuest:
		return "Gast"
	default:
		return "unbekannt"
	}
}

// Billable reports whether persons in this group get invoices.
func (g Group) Billable() bool {
	return g == GroupMember || g == GroupGuest
}

// Method of payment codes as stored on easyVerein contacts.
const (
	PaymentNotSelected = 0
	PaymentDebit       = 1
	PaymentTransfer    = 2
	PaymentCash        = 3
	PaymentOther       = 4
)

// Contact is a person record of the club-management directory.
type Contact struct {
	ID              int64
	FirstName       string
	FamilyName      string
	Salutation      string
	Street          string
	Zip             string
	City            string
	Email           string
	MethodOfPayment int
	Groups          []string
	Group           Group
}

func (c *Contact) Key() PersonKey {
	return NewPersonKey(c.FirstName, c.FamilyName)
}

// PaymentInformation maps the contact's method of payment to the invoice field.
func (c *Contact) PaymentInformation() string {
	switch c.MethodOfPayment {
	case PaymentDebit:
		return "debit"
	case PaymentTransfer:
		return "account"
	default:
		return "other"
	}
}

// Receiver renders the postal address printed on the invoice.
func (c *Contact) Receiver() string {
	return fmt.Sprintf("%s %s %s\r\n%s\r\n%s %s",
		c.Salutation, c.FirstName, c.FamilyName, c.Street, c.Zip, c.City)
}

// Validate reports the first field an invoice cannot do without.
func (c *Contact) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("%w: contact id of %s", ErrMissingField, c.Key())
	}
	for name, v := range map[string]string{"street": c.Street, "zip": c.Zip, "city": c.City} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: contact %d %s", ErrMissingField, c.ID, name)
		}
	}
	return nil
}
