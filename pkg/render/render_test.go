package render

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/courtbill/pkg/models"
)

func draft() *models.Invoice {
	return &models.Invoice{
		Number:             "2024-632",
		Date:               time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC),
		TotalPrice:         decimal.RequireFromString("4.5"),
		Receiver:           "Herr Jörg Bäcker\r\nHauptstraße 1\r\n82284 Grafrath",
		PaymentInformation: "debit",
		Items: []models.InvoiceItem{
			{Title: "Getränkebuchung am 01.12.2024, Anzahl Getränke: 1 aus Listenposten: Weißbier", Quantity: 1, UnitPrice: decimal.RequireFromString("4.5"), Description: "Preise siehe Preisliste Courtbooking"},
		},
	}
}

func TestInvoice(t *testing.T) {
	data, err := Invoice(draft())
	if err != nil {
		t.Fatalf("Invoice failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output is not a pdf")
	}
}

func TestWriteFile(t *testing.T) {
	path, err := WriteFile(t.TempDir(), "Jörg Bäcker", draft())
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file at %s: %v", path, err)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("2024-1", "Anna/Maria Muster"); got != "2024-1_AnnaMaria_Muster.pdf" {
		t.Errorf("unexpected file name %q", got)
	}
}
