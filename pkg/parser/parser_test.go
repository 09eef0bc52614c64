package parser

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/yurifrl/courtbill/pkg/models"
)

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return []byte(b)
}

func newParser() *Parser {
	return New(log.New(io.Discard), charmap.ISO8859_1)
}

const bookingsCSV = `Kaufdatum;Vorname;Nachname;Getränk;Anzahl;Preis;Gezahlt
01.12.2024 10:00;Anna;Muster;Cola;2;3,00;Nicht gezahlt
01.12.2024 11:30;Anna;Muster;Spezi;1;1,50;Nicht gezahlt
02.12.2024 18:00;Jörg;Bäcker;Weißbier;3;10,50;Gezahlt
03.12.2024 18:00; Jörg ;Bäcker;Weißbier;1;3,50;Nicht gezahlt
`

func TestProcessBytes(t *testing.T) {
	p := newParser()
	table, err := p.ProcessBytes(latin1(t, bookingsCSV), "getraenkeliste.csv")
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}

	if got := table.Header[3]; got != "Getränk" {
		t.Errorf("expected latin1 header to decode, got %q", got)
	}
	if len(table.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(table.Rows))
	}
	if got := table.Value(table.Rows[2], "Vorname"); got != "Jörg" {
		t.Errorf("expected Jörg, got %q", got)
	}
}

func TestProcessBytesUnknownType(t *testing.T) {
	if _, err := newParser().ProcessBytes([]byte("x"), "export.pdf"); err == nil {
		t.Fatal("expected error for unknown file type")
	}
}

func TestUnpaidAndBookings(t *testing.T) {
	p := newParser()
	table, err := p.ProcessBytes(latin1(t, bookingsCSV), "getraenkeliste.csv")
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}

	unpaid, err := p.Unpaid(table)
	if err != nil {
		t.Fatalf("Unpaid failed: %v", err)
	}
	if len(unpaid.Rows) != 3 {
		t.Fatalf("expected 3 unpaid rows, got %d", len(unpaid.Rows))
	}

	set, err := p.Bookings(unpaid)
	if err != nil {
		t.Fatalf("Bookings failed: %v", err)
	}
	if len(set.Rejected) != 0 {
		t.Errorf("unexpected rejections: %v", set.Rejected)
	}
	if len(set.Bookings) != 3 {
		t.Fatalf("expected 3 bookings, got %d", len(set.Bookings))
	}

	first := set.Bookings[0]
	if first.Person != models.NewPersonKey("Anna", "Muster") {
		t.Errorf("unexpected person %v", first.Person)
	}
	if first.PurchasedAt.Format(models.DateLayout) != "01.12.2024" {
		t.Errorf("unexpected date %s", first.PurchasedAt)
	}
	if first.Quantity != 2 || !first.Price.Equal(decimal.RequireFromString("3.00")) || first.Item != "Cola" {
		t.Errorf("unexpected booking %+v", first)
	}
	if first.Raw[5] != "3,00" {
		t.Errorf("expected raw price cell to be kept, got %q", first.Raw[5])
	}

	if got := set.Bookings[2].Person.FirstName; got != "Jörg" {
		t.Errorf("expected trimmed first name, got %q", got)
	}
}

func TestBookingsRejectsWholePerson(t *testing.T) {
	p := newParser()
	table, err := p.ProcessBytes(latin1(t, `Kaufdatum;Vorname;Nachname;Getränk;Anzahl;Preis;Gezahlt
01.12.2024 10:00;Anna;Muster;Cola;2;3,00;Nicht gezahlt
02.12.2024 10:00;Anna;Muster;Cola;2;drei;Nicht gezahlt
02.12.2024 10:00;Ben;Beispiel;Wasser;1;1,00;Nicht gezahlt
`), "b.csv")
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}

	set, err := p.Bookings(table)
	if err != nil {
		t.Fatalf("Bookings failed: %v", err)
	}
	if len(set.Bookings) != 1 || set.Bookings[0].Person.FirstName != "Ben" {
		t.Fatalf("expected only Ben's booking, got %d bookings", len(set.Bookings))
	}
	err = set.Rejected[models.NewPersonKey("Anna", "Muster")]
	if !errors.Is(err, models.ErrValue) {
		t.Errorf("expected ErrValue for Anna, got %v", err)
	}
}

func TestBookingsMissingColumn(t *testing.T) {
	p := newParser()
	table, err := p.ProcessBytes([]byte("Vorname;Nachname\nAnna;Muster\n"), "b.csv")
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}
	if _, err := p.Bookings(table); !errors.Is(err, models.ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
	if _, err := p.Unpaid(table); !errors.Is(err, models.ErrMissingField) {
		t.Errorf("expected ErrMissingField from Unpaid, got %v", err)
	}
}

func TestRoster(t *testing.T) {
	p := newParser()
	table, err := p.ProcessBytes(latin1(t, `Vorname;Nachname;Geschlecht;PLZ;Telefonnummer;Straße
Anna;Muster;Weiblich;82284;08144 / 123;Hauptstraße 1
Jörg;Bäcker;Männlich;;;
`), "mitgliederliste.csv")
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}

	entries, err := p.Roster(table)
	if err != nil {
		t.Fatalf("Roster failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Street != "Hauptstraße 1" || entries[0].PostalCode != "82284" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
	if entries[1].Gender != "Männlich" || entries[1].Mobile != "" {
		t.Errorf("unexpected entry %+v", entries[1])
	}
}

func TestRosterXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Mitgliederliste TC"},
		{"Vorname", "Nachname", "Geschlecht", "PLZ"},
		{"Anna", "Muster", "Weiblich", 82284},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	p := newParser()
	table, err := p.ProcessBytes(buf.Bytes(), "mitgliederliste.xlsx")
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}
	entries, err := p.Roster(table)
	if err != nil {
		t.Fatalf("Roster failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Person != models.NewPersonKey("Anna", "Muster") || entries[0].PostalCode != "82284" {
		t.Errorf("unexpected entries %+v", entries)
	}
}
