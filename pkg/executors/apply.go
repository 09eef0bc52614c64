package executors

import (
	"context"
	"errors"
	"fmt"

	"github.com/yurifrl/courtbill/pkg/easyverein"
	"github.com/yurifrl/courtbill/pkg/metrics"
	"github.com/yurifrl/courtbill/pkg/models"
)

// Error kinds a person can fail with without stopping the run.
const (
	KindMissingField = "missing_field"
	KindValue        = "value"
	KindRejected     = "rejected"
)

// Apply invoices every billable person of the batch one after another. With dryRun
// nothing is written: no invoice is created and the ledger stays untouched.
func (e *Executor) Apply(ctx context.Context, b *Batch, dryRun bool) (*Report, error) {
	report := &Report{RunID: e.runID}
	e.logger.Info("invoicing", "persons", len(b.People), "dry_run", dryRun)

	for _, p := range b.People {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if !p.Billable() {
			e.logger.Warn("person not found in directory as member or guest, not invoiced", "person", p.Key())
			e.metrics.PersonsSkipped.WithLabelValues(metrics.ReasonUnrecognized).Inc()
			report.Outcomes = append(report.Outcomes, Outcome{Person: p.Key(), Status: Skipped, Reason: metrics.ReasonUnrecognized})
			continue
		}

		res, err := e.composer.Submit(ctx, p, dryRun)
		if err != nil {
			kind, recoverable := classify(err)
			if !recoverable {
				return report, fmt.Errorf("invoice for %s: %w", p.Key(), err)
			}
			e.logger.Error("invoice failed", "person", p.Key(), "kind", kind, "error", err)
			e.metrics.PersonErrors.WithLabelValues(kind).Inc()
			report.Outcomes = append(report.Outcomes, Outcome{Person: p.Key(), Group: p.Group, Status: Failed, Reason: kind, Err: err})
			continue
		}

		out := Outcome{Person: p.Key(), Group: p.Group, Invoice: res.Invoice, Result: res.String()}
		if dryRun {
			out.Status = Drafted
			e.metrics.InvoicesDrafted.Inc()
			e.logger.Info("invoice drafted", "person", p.Key(), "group", p.Group, "number", res.Invoice.Number, "total", res.Invoice.TotalPrice.StringFixed(2), "result", res)
			report.Outcomes = append(report.Outcomes, out)
			continue
		}

		if err := b.Ledger.Append(b.Header, p.Consumption.RawRows()); err != nil {
			return report, fmt.Errorf("%s created for %s but ledger not updated: %w", res, p.Key(), err)
		}
		out.Status = Created
		report.Outcomes = append(report.Outcomes, out)

		total, _ := res.Invoice.TotalPrice.Float64()
		e.metrics.InvoicesCreated.Inc()
		e.metrics.InvoicedAmount.Add(total)
		e.logger.Info("invoice created", "person", p.Key(), "group", p.Group, "result", res, "total", res.Invoice.TotalPrice.StringFixed(2))

		if err := e.sleep(ctx, e.config.RateLimitDelay); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Run loads the batch and applies it, honouring the configured dry-run flag.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	b, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	return e.Apply(ctx, b, e.config.DryRun)
}

func classify(err error) (string, bool) {
	var apiErr *easyverein.APIError
	switch {
	case errors.Is(err, models.ErrMissingField):
		return KindMissingField, true
	case errors.Is(err, models.ErrValue):
		return KindValue, true
	case errors.As(err, &apiErr):
		return KindRejected, true
	default:
		return "", false
	}
}
