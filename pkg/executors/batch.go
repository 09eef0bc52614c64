package executors

import (
	"context"
	"fmt"

	"github.com/yurifrl/courtbill/pkg/aggregate"
	"github.com/yurifrl/courtbill/pkg/csv"
	"github.com/yurifrl/courtbill/pkg/easyverein"
	"github.com/yurifrl/courtbill/pkg/ledger"
	"github.com/yurifrl/courtbill/pkg/metrics"
	"github.com/yurifrl/courtbill/pkg/models"
	"github.com/yurifrl/courtbill/pkg/reconcile"
	"github.com/yurifrl/courtbill/pkg/resolve"
)

// Batch is everything loaded before the first invoice is sent.
type Batch struct {
	Header    []string
	Unpaid    int
	Reconcile *reconcile.Report
	Rejected  map[models.PersonKey]error
	People    []*resolve.Person
	Ledger    *ledger.Ledger
}

// Load reads the exports and the ledger, drops what was billed before, and resolves
// every remaining person against roster and directory.
func (e *Executor) Load(ctx context.Context) (*Batch, error) {
	enc, err := csv.Encoding(e.config.Files.Encoding)
	if err != nil {
		return nil, err
	}

	export, err := e.parser.ReadFile(e.config.BookingsPath())
	if err != nil {
		return nil, fmt.Errorf("bookings %s: %w", e.config.BookingsPath(), err)
	}
	unpaid, err := e.parser.Unpaid(export)
	if err != nil {
		return nil, err
	}
	e.metrics.BookingsRead.Add(float64(len(unpaid.Rows)))

	l, err := ledger.Open(e.logger, e.config.LedgerPath(), enc, unpaid.Header)
	if err != nil {
		return nil, err
	}

	report := reconcile.Build(unpaid, l.Table())
	e.metrics.BookingsBilled.Add(float64(report.BilledCount()))
	e.logger.Info("bookings reconciled", "unpaid", len(unpaid.Rows), "already_billed", report.BilledCount(), "to_bill", report.ToBillCount())

	set, err := e.parser.Bookings(report.ToBill())
	if err != nil {
		return nil, err
	}
	for person, rerr := range set.Rejected {
		e.logger.Error("bookings rejected, person not billed", "person", person, "error", rerr)
		e.metrics.PersonsSkipped.WithLabelValues(metrics.ReasonRejectedRows).Inc()
	}

	bookings := csv.Filter(set.Bookings, e.filter)
	if skipped := len(set.Bookings) - len(bookings); skipped > 0 {
		e.logger.Debug("bookings filtered out", "count", skipped)
	}
	consumptions := aggregate.ByPerson(bookings)

	rosterTable, err := e.parser.ReadFile(e.config.RosterPath())
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", e.config.RosterPath(), err)
	}
	roster, err := e.parser.Roster(rosterTable)
	if err != nil {
		return nil, err
	}

	var contacts []*models.Contact
	if len(consumptions) > 0 {
		contacts, err = e.directory.List(ctx, easyverein.ContactFilter{ExcludeGroup: e.config.Groups.Company})
		if err != nil {
			return nil, fmt.Errorf("failed to load contact directory: %w", err)
		}
		e.logger.Debug("directory loaded", "contacts", len(contacts))
	}

	return &Batch{
		Header:    unpaid.Header,
		Unpaid:    len(unpaid.Rows),
		Reconcile: report,
		Rejected:  set.Rejected,
		People:    e.resolver.Resolve(consumptions, roster, contacts),
		Ledger:    l,
	}, nil
}
