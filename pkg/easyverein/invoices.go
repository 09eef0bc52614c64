package easyverein

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/courtbill/pkg/models"
)

const apiDateLayout = "2006-01-02"

type InvoiceService struct {
	client *Client
}

// InvoiceFilter narrows invoice listings to invoices dated on or after DateFrom.
type InvoiceFilter struct {
	DateFrom time.Time
}

// InvoiceRecord is the part of a stored invoice the numbering scan needs. Number is
// empty when the API holds no text identifier.
type InvoiceRecord struct {
	ID     int64
	Number string
	Date   string
}

type invoiceSummary struct {
	ID        int64  `json:"id"`
	InvNumber any    `json:"invNumber"`
	Date      string `json:"date"`
}

type invoicePayload struct {
	InvNumber          string      `json:"invNumber"`
	Date               string      `json:"date,omitempty"`
	TotalPrice         json.Number `json:"totalPrice"`
	Kind               string      `json:"kind"`
	RelatedAddress     string      `json:"relatedAddress"`
	Receiver           string      `json:"receiver"`
	PaymentInformation string      `json:"paymentInformation"`
	SelectionAcc       int64       `json:"selectionAcc,omitempty"`
	IsDraft            bool        `json:"isDraft"`
}

type invoiceItemPayload struct {
	RelatedInvoice string      `json:"relatedInvoice"`
	Title          string      `json:"title"`
	Quantity       int         `json:"quantity"`
	UnitPrice      json.Number `json:"unitPrice"`
	Description    string      `json:"description"`
	TaxRate        json.Number `json:"taxRate"`
	TaxName        string      `json:"taxName"`
	BillingAccount string      `json:"billingAccount,omitempty"`
}

// CreatedInvoice identifies an invoice stored by CreateWithItems.
type CreatedInvoice struct {
	ID     int64
	Number string
	Items  int
}

func (c *CreatedInvoice) String() string {
	return fmt.Sprintf("invoice %s (id %d, %d items)", c.Number, c.ID, c.Items)
}

func (s *InvoiceService) List(ctx context.Context, filter InvoiceFilter) ([]InvoiceRecord, error) {
	query := url.Values{}
	if !filter.DateFrom.IsZero() {
		query.Set("date__gte", filter.DateFrom.Format(apiDateLayout))
	}

	raw, err := s.client.list(ctx, "invoice", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	out := make([]InvoiceRecord, 0, len(raw))
	for _, r := range raw {
		var is invoiceSummary
		if err := json.Unmarshal(r, &is); err != nil {
			return nil, fmt.Errorf("failed to decode invoice: %w", err)
		}
		rec := InvoiceRecord{ID: is.ID, Date: is.Date}
		if n, ok := is.InvNumber.(string); ok {
			rec.Number = n
		}
		out = append(out, rec)
	}
	return out, nil
}

// CreateWithItems stores the invoice as a draft, attaches every item and then clears
// the draft flag. An item failing midway leaves a draft behind, which the API keeps
// out of bookkeeping.
func (s *InvoiceService) CreateWithItems(ctx context.Context, inv *models.Invoice) (*CreatedInvoice, error) {
	c := s.client

	header := invoicePayload{
		InvNumber:          inv.Number,
		TotalPrice:         number(inv.TotalPrice),
		Kind:               inv.Kind,
		RelatedAddress:     inv.RelatedAddress,
		Receiver:           inv.Receiver,
		PaymentInformation: inv.PaymentInformation,
		SelectionAcc:       inv.SelectionAccount,
		IsDraft:            true,
	}
	if !inv.Date.IsZero() {
		header.Date = inv.Date.Format(apiDateLayout)
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.URL("invoice"), header, &created); err != nil {
		return nil, err
	}
	invoiceURL := c.URL(fmt.Sprintf("invoice/%d", created.ID))
	c.logger.Debug("created draft invoice", "id", created.ID, "number", inv.Number)

	for i, item := range inv.Items {
		payload := invoiceItemPayload{
			RelatedInvoice: invoiceURL,
			Title:          item.Title,
			Quantity:       item.Quantity,
			UnitPrice:      number(item.UnitPrice),
			Description:    item.Description,
			TaxRate:        number(item.TaxRate),
			TaxName:        item.TaxName,
			BillingAccount: item.BillingAccount,
		}
		if err := c.do(ctx, http.MethodPost, c.URL("invoice-item"), payload, nil); err != nil {
			return nil, fmt.Errorf("item %d of invoice %s: %w", i, inv.Number, err)
		}
	}

	if err := c.do(ctx, http.MethodPatch, invoiceURL, map[string]bool{"isDraft": false}, nil); err != nil {
		return nil, fmt.Errorf("finalize invoice %s: %w", inv.Number, err)
	}

	return &CreatedInvoice{ID: created.ID, Number: inv.Number, Items: len(inv.Items)}, nil
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
