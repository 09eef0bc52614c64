package executors

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/yurifrl/courtbill/pkg/models"
	"github.com/yurifrl/courtbill/pkg/plan"
	"github.com/yurifrl/courtbill/pkg/render"
)

// Plan runs the batch as a dry run, prints the preview to w and returns the plan.
// With pdfDir set every drafted invoice is also rendered as PDF.
func (e *Executor) Plan(ctx context.Context, w io.Writer, pdfDir string) (*plan.Plan, error) {
	b, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	report, err := e.Apply(ctx, b, true)
	if err != nil {
		return nil, err
	}
	report.Print(w)

	p := &plan.Plan{
		RunID:     e.runID,
		CreatedAt: time.Now().UTC(),
		Bookings: plan.Bookings{
			Unpaid: b.Unpaid,
			Billed: b.Reconcile.BilledCount(),
			ToBill: b.Reconcile.ToBillCount(),
		},
	}
	if !e.config.CompletionDate.IsZero() {
		p.CompletionDate = e.config.CompletionDate.Format(models.DateLayout)
	}
	rejected := make([]models.PersonKey, 0, len(b.Rejected))
	for person := range b.Rejected {
		rejected = append(rejected, person)
	}
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Less(rejected[j]) })
	for _, person := range rejected {
		p.Skipped = append(p.Skipped, plan.Skip{Person: person.String(), Reason: b.Rejected[person].Error()})
	}

	for _, o := range report.Outcomes {
		switch o.Status {
		case Drafted:
			p.Invoices = append(p.Invoices, plan.Invoice{Person: o.Person.String(), Group: o.Group.String(), Invoice: o.Invoice})
			if pdfDir == "" {
				continue
			}
			path, err := render.WriteFile(pdfDir, o.Person.String(), o.Invoice)
			if err != nil {
				return nil, err
			}
			e.logger.Debug("draft rendered", "person", o.Person, "path", path)
		case Skipped:
			p.Skipped = append(p.Skipped, plan.Skip{Person: o.Person.String(), Reason: o.Reason})
		case Failed:
			p.Skipped = append(p.Skipped, plan.Skip{Person: o.Person.String(), Reason: o.Err.Error()})
		}
	}
	return p, nil
}
