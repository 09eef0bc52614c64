package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// KindRevenue marks an invoice as income of the club.
const KindRevenue = "revenue"

type InvoiceItem struct {
	Title          string          `yaml:"title"`
	Quantity       int             `yaml:"quantity"`
	UnitPrice      decimal.Decimal `yaml:"unit_price"`
	Description    string          `yaml:"description"`
	TaxRate        decimal.Decimal `yaml:"tax_rate"`
	TaxName        string          `yaml:"tax_name"`
	BillingAccount string          `yaml:"billing_account"`
}

func (i InvoiceItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Invoice is the header plus line items submitted to the club-management system.
type Invoice struct {
	Number             string          `yaml:"number"`
	Date               time.Time       `yaml:"date"`
	TotalPrice         decimal.Decimal `yaml:"total_price"`
	Kind               string          `yaml:"kind"`
	RelatedAddress     string          `yaml:"related_address"`
	Receiver           string          `yaml:"receiver"`
	PaymentInformation string          `yaml:"payment_information"`
	SelectionAccount   int64           `yaml:"selection_account,omitempty"`
	Items              []InvoiceItem   `yaml:"items"`
}

type InvoiceBuilder struct {
	inv Invoice
}

func NewInvoice() *InvoiceBuilder {
	return &InvoiceBuilder{inv: Invoice{Kind: KindRevenue}}
}

func (b *InvoiceBuilder) SetNumber(n string) *InvoiceBuilder {
	b.inv.Number = n
	return b
}

func (b *InvoiceBuilder) SetDate(d time.Time) *InvoiceBuilder {
	b.inv.Date = Date(d)
	return b
}

func (b *InvoiceBuilder) SetTotal(total decimal.Decimal) *InvoiceBuilder {
	b.inv.TotalPrice = total
	return b
}

func (b *InvoiceBuilder) SetRelatedAddress(url string) *InvoiceBuilder {
	b.inv.RelatedAddress = url
	return b
}

func (b *InvoiceBuilder) SetReceiver(r string) *InvoiceBuilder {
	b.inv.Receiver = r
	return b
}

func (b *InvoiceBuilder) SetPaymentInformation(p string) *InvoiceBuilder {
	b.inv.PaymentInformation = p
	return b
}

func (b *InvoiceBuilder) SetSelectionAccount(id int64) *InvoiceBuilder {
	b.inv.SelectionAccount = id
	return b
}

func (b *InvoiceBuilder) AddItem(item InvoiceItem) *InvoiceBuilder {
	b.inv.Items = append(b.inv.Items, item)
	return b
}

// Build validates the invoice. Missing header fields or items yield ErrMissingField,
// a total that disagrees with the items yields ErrValue.
func (b *InvoiceBuilder) Build() (*Invoice, error) {
	inv := b.inv
	switch {
	case inv.Number == "":
		return nil, fmt.Errorf("%w: invNumber", ErrMissingField)
	case inv.RelatedAddress == "":
		return nil, fmt.Errorf("%w: relatedAddress", ErrMissingField)
	case inv.Receiver == "":
		return nil, fmt.Errorf("%w: receiver", ErrMissingField)
	case len(inv.Items) == 0:
		return nil, fmt.Errorf("%w: items", ErrMissingField)
	}

	sum := decimal.Zero
	for i, item := range inv.Items {
		if item.Title == "" {
			return nil, fmt.Errorf("%w: items[%d].title", ErrMissingField, i)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: items[%d].quantity %d", ErrValue, i, item.Quantity)
		}
		sum = sum.Add(item.Total())
	}
	if !sum.Equal(inv.TotalPrice) {
		return nil, fmt.Errorf("%w: total %s does not match items %s", ErrValue, inv.TotalPrice, sum)
	}
	return &inv, nil
}
