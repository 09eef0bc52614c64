package invoice

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/courtbill/pkg/easyverein"
	"github.com/yurifrl/courtbill/pkg/models"
	"github.com/yurifrl/courtbill/pkg/resolve"
)

// DryRun is returned by Submit instead of a created invoice when nothing is sent.
const DryRun = "Dryrun"

const (
	DescriptionCompletionDay = "Abrechnung laut ausliegender Getränkeliste - Buchungstag als Abrechnungstag gesetzt"
	DescriptionPriceList     = "Preise siehe Preisliste Courtbooking"
	taxName                  = " "
)

var numberPattern = regexp.MustCompile(`^\d{4}-(\d+)`)

// Store is the part of the easyVerein invoice API the composer needs.
type Store interface {
	List(ctx context.Context, filter easyverein.InvoiceFilter) ([]easyverein.InvoiceRecord, error)
	CreateWithItems(ctx context.Context, inv *models.Invoice) (*easyverein.CreatedInvoice, error)
}

type Config struct {
	CompletionDate   time.Time
	SelectionAccount int64
	BillingAccount   string
	ContactURLPrefix string
}

type Composer struct {
	logger *log.Logger
	store  Store
	config Config
	now    func() time.Time
}

func New(logger *log.Logger, store Store, config Config) *Composer {
	return &Composer{logger: logger, store: store, config: config, now: time.Now}
}

// WithClock replaces the clock that decides the invoice year and date.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

// NextNumber scans the year's invoices and returns "<year>-<max suffix + 1>".
// Identifiers that are missing or do not start with a year prefix count as zero.
func NextNumber(records []easyverein.InvoiceRecord, year int) string {
	highest := 0
	for _, r := range records {
		m := numberPattern.FindStringSubmatch(r.Number)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%d-%d", year, highest+1)
}

// Number asks the store for the year's invoices and derives the next identifier.
// Nothing is cached; every call scans again.
func (c *Composer) Number(ctx context.Context) (string, error) {
	now := c.now()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	records, err := c.store.List(ctx, easyverein.InvoiceFilter{DateFrom: from})
	if err != nil {
		return "", fmt.Errorf("failed to scan invoice numbers: %w", err)
	}
	return NextNumber(records, now.Year()), nil
}

// Items renders one line per purchase date of the consumption.
func (c *Composer) Items(cons *models.Consumption) []models.InvoiceItem {
	items := make([]models.InvoiceItem, 0, len(cons.Days))
	for _, day := range cons.Days {
		items = append(items, models.InvoiceItem{
			Title: fmt.Sprintf("Getränkebuchung am %s, Anzahl Getränke: %d aus Listenposten: %s",
				day.Date.Format(models.DateLayout), day.Quantity(), strings.Join(day.DistinctItems(), ", ")),
			Quantity:       1,
			UnitPrice:      day.Total(),
			Description:    c.Description(day.Date),
			TaxRate:        decimal.Zero,
			TaxName:        taxName,
			BillingAccount: c.config.BillingAccount,
		})
	}
	return items
}

// Description notes whether the purchase date is the completion date of the list.
func (c *Composer) Description(purchased time.Time) string {
	if !c.config.CompletionDate.IsZero() && models.Date(purchased).Equal(models.Date(c.config.CompletionDate)) {
		return DescriptionCompletionDay
	}
	return DescriptionPriceList
}

// Compose builds the invoice for a resolved person under the given identifier.
func (c *Composer) Compose(p *resolve.Person, number string) (*models.Invoice, error) {
	if p.Contact == nil {
		return nil, fmt.Errorf("%w: contact of %s", models.ErrMissingField, p.Key())
	}
	if err := p.Contact.Validate(); err != nil {
		return nil, err
	}
	contact := *p.Contact
	if contact.Salutation == "" {
		contact.Salutation = p.Salutation
	}

	b := models.NewInvoice().
		SetNumber(number).
		SetDate(c.now()).
		SetTotal(p.Consumption.Total()).
		SetRelatedAddress(c.config.ContactURLPrefix + strconv.FormatInt(contact.ID, 10)).
		SetReceiver(contact.Receiver()).
		SetPaymentInformation(contact.PaymentInformation()).
		SetSelectionAccount(c.config.SelectionAccount)
	for _, item := range c.Items(p.Consumption) {
		b.AddItem(item)
	}
	return b.Build()
}

// Result is the outcome of Submit. Created is nil on a dry run.
type Result struct {
	Invoice *models.Invoice
	Created *easyverein.CreatedInvoice
}

func (r *Result) String() string {
	if r.Created == nil {
		return DryRun
	}
	return r.Created.String()
}

// Submit numbers, composes and creates the invoice for a person. With dryRun the
// store is still scanned for the number but nothing is written.
func (c *Composer) Submit(ctx context.Context, p *resolve.Person, dryRun bool) (*Result, error) {
	number, err := c.Number(ctx)
	if err != nil {
		return nil, err
	}
	inv, err := c.Compose(p, number)
	if err != nil {
		return nil, err
	}
	if dryRun {
		c.logger.Debug("dry run, invoice not sent", "person", p.Key(), "number", inv.Number)
		return &Result{Invoice: inv}, nil
	}

	created, err := c.store.CreateWithItems(ctx, inv)
	if err != nil {
		return nil, err
	}
	return &Result{Invoice: inv, Created: created}, nil
}
