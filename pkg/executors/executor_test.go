package executors

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/text/encoding/charmap"

	"github.com/yurifrl/courtbill/pkg/config"
	"github.com/yurifrl/courtbill/pkg/easyverein"
	"github.com/yurifrl/courtbill/pkg/easyverein/easyvereintest"
	"github.com/yurifrl/courtbill/pkg/invoice"
	"github.com/yurifrl/courtbill/pkg/metrics"
	"github.com/yurifrl/courtbill/pkg/models"
	"github.com/yurifrl/courtbill/pkg/parser"
)

const groupURL = "https://easyverein.com/api/v2.0/contact-details-group/"

const bookingsCSV = `Kaufdatum;Vorname;Nachname;Getränk;Anzahl;Preis;Gezahlt
01.12.2024 10:00;Anna;Muster;Cola;2;3,00;Nicht gezahlt
06.12.2024 19:00;Anna;Muster;Spezi;1;1,50;Nicht gezahlt
02.12.2024 18:00;Jörg;Bäcker;Weißbier;2;7,00;Nicht gezahlt
03.12.2024 18:00;Jörg;Bäcker;Weißbier;1;3,50;Gezahlt
04.12.2024 20:00;Dora;Draußen;Wasser;1;1,00;Nicht gezahlt
`

const rosterCSV = `Vorname;Nachname;Geschlecht;PLZ;Telefonnummer;Handynummer;Straße;Ort
Anna;Muster;Weiblich;82284;;;Hauptstraße 1;Grafrath
Jörg;Bäcker;Männlich;82272.0;08144 / 99;;Am Anger 2;Moorenweis
`

type fixture struct {
	dir     string
	srv     *easyvereintest.Server
	cfg     *config.Config
	metrics *metrics.Metrics
}

func writeLatin1(t *testing.T, path, s string) {
	t.Helper()
	b, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(b), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	writeLatin1(t, filepath.Join(dir, "getraenkeliste.csv"), bookingsCSV)
	writeLatin1(t, filepath.Join(dir, "mitgliederliste.csv"), rosterCSV)

	srv := easyvereintest.NewServer()
	t.Cleanup(srv.Close)
	srv.Contacts = []easyvereintest.Contact{
		{ID: 11, FirstName: "Anna", FamilyName: "Muster", Salutation: "Frau", Street: "Hauptstraße 1", Zip: "82284", City: "Grafrath",
			MethodOfPayment: models.PaymentDebit, ContactDetailsGroups: []string{groupURL + "193181080"}},
		{ID: 12, FirstName: "Jörg", FamilyName: "Bäcker", Salutation: "Herr", Street: "Am Anger 2", Zip: 82272, City: "Moorenweis",
			MethodOfPayment: models.PaymentTransfer, ContactDetailsGroups: []string{groupURL + "187854580"}},
		{ID: 13, FirstName: "Firma", FamilyName: "GmbH", ContactDetailsGroups: []string{groupURL + "193181175"}},
	}
	srv.AddInvoice("2024-631", "2024-03-01")

	return &fixture{
		dir: dir,
		srv: srv,
		cfg: &config.Config{
			API:    config.API{Key: easyvereintest.Token},
			Files:  config.Files{Dir: dir, Bookings: "getraenkeliste.csv", Roster: "mitgliederliste.csv", Ledger: "ledger.csv", Encoding: "latin1"},
			Groups: config.Groups{Member: "193181080", Guest: "187854580", Company: "193181175"},
			Billing: config.Billing{
				SelectionAccount: 187408412,
				BillingAccount:   "https://easyverein.com/api/v2.0/billing-account/44134",
				ContactURL:       "https://easyverein.com/api/v1.7/contact-details/",
			},
			CompletionDate: time.Date(2024, 12, 6, 0, 0, 0, 0, time.UTC),
		},
		metrics: metrics.New(),
	}
}

func (f *fixture) executor(t *testing.T) *Executor {
	t.Helper()
	logger := log.New(io.Discard)
	client, err := easyverein.New(f.srv.BaseURL(), "v2.0", f.cfg.API.Key, easyverein.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	return New(logger, f.cfg, parser.New(logger, charmap.ISO8859_1), client.Contacts(), client.Invoices(), f.metrics).
		WithClock(func() time.Time { return time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC) })
}

func (f *fixture) ledgerPath() string {
	return filepath.Join(f.dir, "ledger.csv")
}

func statuses(r *Report) []Status {
	out := make([]Status, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Status
	}
	return out
}

func TestDryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.cfg.DryRun = true

	report, err := f.executor(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// persons come ordered by name: Anna, Dora, Jörg
	want := []Status{Drafted, Skipped, Drafted}
	got := statuses(report)
	if len(got) != len(want) {
		t.Fatalf("expected %d outcomes, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("outcome %d: got %v, want %v", i, got[i], want[i])
		}
	}
	for _, o := range report.Outcomes {
		if o.Status == Drafted && o.Result != invoice.DryRun {
			t.Errorf("expected sentinel for %s, got %q", o.Person, o.Result)
		}
	}

	if _, err := os.Stat(f.ledgerPath()); !os.IsNotExist(err) {
		t.Error("dry run must not create the ledger")
	}
	if n := f.srv.Count("POST"); n != 0 {
		t.Errorf("dry run sent %d POST requests", n)
	}
	if got := testutil.ToFloat64(f.metrics.InvoicesDrafted); got != 2 {
		t.Errorf("expected 2 drafted, got %v", got)
	}
}

func TestApplyCreatesInvoicesAndUpdatesLedger(t *testing.T) {
	f := newFixture(t)

	report, err := f.executor(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Count(Created) != 2 || report.Count(Skipped) != 1 {
		t.Fatalf("unexpected outcomes %v", statuses(report))
	}

	created := f.srv.Created()
	if len(created) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(created))
	}
	anna, joerg := created[0], created[1]
	if anna.InvNumber != "2024-632" || joerg.InvNumber != "2024-633" {
		t.Errorf("unexpected numbers %v, %v", anna.InvNumber, joerg.InvNumber)
	}
	if anna.TotalPrice.String() != "4.50" || len(anna.Items) != 2 || anna.PaymentInformation != "debit" {
		t.Errorf("unexpected invoice for Anna %+v", anna)
	}
	if anna.Items[0].Description != invoice.DescriptionPriceList || anna.Items[1].Description != invoice.DescriptionCompletionDay {
		t.Errorf("unexpected descriptions %q, %q", anna.Items[0].Description, anna.Items[1].Description)
	}
	if joerg.RelatedAddress != "https://easyverein.com/api/v1.7/contact-details/12" || joerg.PaymentInformation != "account" {
		t.Errorf("unexpected invoice for Jörg %+v", joerg)
	}
	if !strings.HasPrefix(joerg.Receiver, "Herr Jörg Bäcker\r\n") {
		t.Errorf("unexpected receiver %q", joerg.Receiver)
	}

	data, err := os.ReadFile(f.ledgerPath())
	if err != nil {
		t.Fatalf("ledger not written: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 4 {
		t.Errorf("expected header and 3 billed rows, got %d lines:\n%s", lines, data)
	}
	if bytes.Contains(data, []byte("Dora")) {
		t.Error("unrecognized person must not reach the ledger")
	}

	// a second run finds only Dora's unbilled row
	report, err = f.executor(t).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Status != Skipped {
		t.Errorf("expected only the unrecognized person, got %v", statuses(report))
	}
	if len(f.srv.Created()) != 2 {
		t.Error("second run must not create invoices")
	}
}

func TestRejectionContinuesBatch(t *testing.T) {
	f := newFixture(t)
	f.srv.RejectInvoiceCreate = true

	report, err := f.executor(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Count(Failed) != 2 {
		t.Fatalf("expected both invoices to fail, got %v", statuses(report))
	}
	for _, o := range report.Outcomes {
		if o.Status == Failed && o.Reason != KindRejected {
			t.Errorf("expected rejection for %s, got %s", o.Person, o.Reason)
		}
	}
	if _, err := os.Stat(f.ledgerPath()); !os.IsNotExist(err) {
		t.Error("failed invoices must not reach the ledger")
	}
	if got := testutil.ToFloat64(f.metrics.PersonErrors.WithLabelValues(KindRejected)); got != 2 {
		t.Errorf("expected 2 rejected, got %v", got)
	}
}

func TestIncompleteContactFailsOnlyThatPerson(t *testing.T) {
	f := newFixture(t)
	f.srv.Contacts[0].ID = 0

	report, err := f.executor(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []Status{Failed, Skipped, Created}
	got := statuses(report)
	if len(got) != len(want) {
		t.Fatalf("expected %d outcomes, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("outcome %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if report.Outcomes[0].Reason != KindMissingField {
		t.Errorf("expected missing field for Anna, got %s", report.Outcomes[0].Reason)
	}

	created := f.srv.Created()
	if len(created) != 1 || created[0].InvNumber != "2024-632" {
		t.Fatalf("expected only Jörg to be invoiced, got %d invoices", len(created))
	}
	data, err := os.ReadFile(f.ledgerPath())
	if err != nil {
		t.Fatalf("ledger not written: %v", err)
	}
	if bytes.Contains(data, []byte("Anna")) || strings.Count(string(data), "\n") != 2 {
		t.Errorf("expected only Jörg's row in the ledger:\n%s", data)
	}
	if got := testutil.ToFloat64(f.metrics.PersonErrors.WithLabelValues(KindMissingField)); got != 1 {
		t.Errorf("expected 1 missing field error, got %v", got)
	}
}

func TestBilledRowsAreNotInvoicedAgain(t *testing.T) {
	f := newFixture(t)
	writeLatin1(t, f.ledgerPath(), `Kaufdatum;Vorname;Nachname;Getränk;Anzahl;Preis;Gezahlt
01.12.2024 10:00;Anna;Muster;Cola;2.0;3,00;Nicht gezahlt
06.12.2024 19:00;Anna;Muster;Spezi;1;1,50;Nicht gezahlt
`)

	report, err := f.executor(t).WithFilter(func(b *models.Booking) bool {
		return b.Person.FirstName != "Jörg"
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Person.FirstName != "Dora" {
		t.Errorf("expected Anna deduplicated and Jörg filtered, got %+v", report.Outcomes)
	}
	if got := testutil.ToFloat64(f.metrics.BookingsBilled); got != 2 {
		t.Errorf("expected 2 already billed rows, got %v", got)
	}
}

func TestPlan(t *testing.T) {
	f := newFixture(t)
	pdfDir := filepath.Join(f.dir, "pdf")

	var out bytes.Buffer
	p, err := f.executor(t).Plan(context.Background(), &out, pdfDir)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(p.Invoices) != 2 || len(p.Skipped) != 1 {
		t.Fatalf("unexpected plan %+v", p)
	}
	if p.Bookings.Unpaid != 4 || p.Bookings.ToBill != 4 {
		t.Errorf("unexpected booking counts %+v", p.Bookings)
	}
	if !strings.Contains(out.String(), "2 dry run, 1 skipped") {
		t.Errorf("unexpected preview:\n%s", out.String())
	}

	entries, err := os.ReadDir(pdfDir)
	if err != nil || len(entries) != 2 {
		t.Errorf("expected 2 pdf drafts, got %d (%v)", len(entries), err)
	}
	if _, err := os.Stat(f.ledgerPath()); !os.IsNotExist(err) {
		t.Error("plan must not create the ledger")
	}
}

func TestRateLimitDelayHonoursContext(t *testing.T) {
	f := newFixture(t)
	f.cfg.RateLimitDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	e := f.executor(t)
	e.sleep = func(ctx context.Context, d time.Duration) error {
		if d != time.Hour {
			t.Errorf("unexpected delay %s", d)
		}
		cancel()
		return sleep(ctx, d)
	}

	_, err := e.Run(ctx)
	if err != context.Canceled {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(f.srv.Created()) != 1 {
		t.Errorf("expected the run to stop after the first invoice, got %d", len(f.srv.Created()))
	}
}
