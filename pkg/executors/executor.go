package executors

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/yurifrl/courtbill/pkg/config"
	"github.com/yurifrl/courtbill/pkg/csv"
	"github.com/yurifrl/courtbill/pkg/easyverein"
	"github.com/yurifrl/courtbill/pkg/invoice"
	"github.com/yurifrl/courtbill/pkg/metrics"
	"github.com/yurifrl/courtbill/pkg/models"
	"github.com/yurifrl/courtbill/pkg/parser"
	"github.com/yurifrl/courtbill/pkg/resolve"
)

// Directory lists the contacts of the club-management system.
type Directory interface {
	List(ctx context.Context, filter easyverein.ContactFilter) ([]*models.Contact, error)
}

type Executor struct {
	logger    *log.Logger
	config    *config.Config
	parser    *parser.Parser
	directory Directory
	composer  *invoice.Composer
	resolver  *resolve.Resolver
	metrics   *metrics.Metrics
	filter    csv.FilterFunc[*models.Booking]
	runID     string
	sleep     func(ctx context.Context, d time.Duration) error
}

func New(logger *log.Logger, cfg *config.Config, p *parser.Parser, directory Directory, store invoice.Store, m *metrics.Metrics) *Executor {
	runID := uuid.NewString()
	logger = logger.With("run", runID[:8])
	return &Executor{
		logger:    logger,
		config:    cfg,
		parser:    p,
		directory: directory,
		composer: invoice.New(logger, store, invoice.Config{
			CompletionDate:   cfg.CompletionDate,
			SelectionAccount: cfg.Billing.SelectionAccount,
			BillingAccount:   cfg.Billing.BillingAccount,
			ContactURLPrefix: cfg.Billing.ContactURL,
		}),
		resolver: resolve.New(logger, resolve.Groups{Member: cfg.Groups.Member, Guest: cfg.Groups.Guest}),
		metrics:  m,
		runID:    runID,
		sleep:    sleep,
	}
}

// WithFilter restricts the bookings a run considers.
func (e *Executor) WithFilter(f csv.FilterFunc[*models.Booking]) *Executor {
	e.filter = f
	return e
}

// WithClock fixes the time used for invoice numbering and dates.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.composer.WithClock(now)
	return e
}

func (e *Executor) RunID() string {
	return e.runID
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
