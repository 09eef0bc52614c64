package executors

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/courtbill/pkg/models"
)

// Status is what happened to one person in a run.
type Status int

const (
	Created Status = iota
	Drafted
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case Drafted:
		return "dry run"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

type Outcome struct {
	Person  models.PersonKey
	Group   models.Group
	Status  Status
	Invoice *models.Invoice // nil unless composed
	Result  string          // created invoice or the dry-run sentinel
	Reason  string          // why the person was skipped or failed
	Err     error
}

func (o Outcome) Total() decimal.Decimal {
	if o.Invoice == nil {
		return decimal.Zero
	}
	return o.Invoice.TotalPrice
}

type Report struct {
	RunID    string
	Outcomes []Outcome
}

func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Total sums the invoices that were created or drafted.
func (r *Report) Total() decimal.Decimal {
	total := decimal.Zero
	for _, o := range r.Outcomes {
		if o.Status == Created || o.Status == Drafted {
			total = total.Add(o.Total())
		}
	}
	return total
}

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
)

// Print writes one colored line per person and a summary.
func (r *Report) Print(w io.Writer) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case Created, Drafted:
			line := fmt.Sprintf("%-30s | %-9s | %-10s | %2d items | %8s EUR | %s",
				o.Person, o.Group, o.Invoice.Number, len(o.Invoice.Items), o.Total().StringFixed(2), o.Result)
			fmt.Fprintln(w, addedStyle.Render("+ "+line))
		case Skipped:
			fmt.Fprintln(w, skippedStyle.Render(fmt.Sprintf("= %-30s | %s", o.Person, o.Reason)))
		default:
			fmt.Fprintln(w, failedStyle.Render(fmt.Sprintf("! %-30s | %s: %v", o.Person, o.Reason, o.Err)))
		}
	}

	fmt.Fprintf(w, "\nRun %s: %d created, %d dry run, %d skipped, %d failed, %s EUR\n",
		r.RunID, r.Count(Created), r.Count(Drafted), r.Count(Skipped), r.Count(Failed), r.Total().StringFixed(2))
}
