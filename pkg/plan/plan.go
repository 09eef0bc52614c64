// Package plan holds the reviewable outcome of a dry run.
package plan

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yurifrl/courtbill/pkg/models"
)

type Plan struct {
	RunID          string    `yaml:"run_id"`
	CreatedAt      time.Time `yaml:"created_at"`
	CompletionDate string    `yaml:"completion_date,omitempty"`
	Bookings       Bookings  `yaml:"bookings"`
	Invoices       []Invoice `yaml:"invoices"`
	Skipped        []Skip    `yaml:"skipped,omitempty"`
}

type Bookings struct {
	Unpaid int `yaml:"unpaid"`
	Billed int `yaml:"already_billed"`
	ToBill int `yaml:"to_bill"`
}

type Invoice struct {
	Person  string          `yaml:"person"`
	Group   string          `yaml:"group"`
	Invoice *models.Invoice `yaml:"invoice"`
}

type Skip struct {
	Person string `yaml:"person"`
	Reason string `yaml:"reason"`
}

func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	return &p, nil
}

func (p *Plan) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}
	return nil
}

func (p *Plan) Print(w io.Writer) {
	fmt.Fprintf(w, "Run %s at %s\n", p.RunID, p.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Bookings: %d unpaid, %d already billed, %d to bill\n", p.Bookings.Unpaid, p.Bookings.Billed, p.Bookings.ToBill)
	for i, inv := range p.Invoices {
		fmt.Fprintf(w, "[%d] %s (%s) %s: %s EUR, %d items\n",
			i+1, inv.Person, inv.Group, inv.Invoice.Number, inv.Invoice.TotalPrice.StringFixed(2), len(inv.Invoice.Items))
	}
	for _, s := range p.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.Person, s.Reason)
	}
}
