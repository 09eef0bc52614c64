// Package metrics counts what a billing run did. A run is a short batch, so the
// counters are written once to a node_exporter textfile instead of being served.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "courtbill"

// Skip reasons.
const (
	ReasonUnrecognized = "unrecognized"
	ReasonRejectedRows = "rejected_rows"
)

type Metrics struct {
	registry *prometheus.Registry

	BookingsRead     prometheus.Counter
	BookingsBilled   prometheus.Counter
	InvoicesCreated  prometheus.Counter
	InvoicesDrafted  prometheus.Counter
	InvoicedAmount   prometheus.Counter
	PersonsSkipped   *prometheus.CounterVec
	PersonErrors     *prometheus.CounterVec
	LastRunTimestamp prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BookingsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bookings_read_total",
			Help: "Unpaid booking rows read from the export.",
		}),
		BookingsBilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bookings_already_billed_total",
			Help: "Unpaid booking rows dropped because the ledger already holds them.",
		}),
		InvoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "invoices_created_total",
			Help: "Invoices created in easyVerein.",
		}),
		InvoicesDrafted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "invoices_dry_run_total",
			Help: "Invoices composed without being sent.",
		}),
		InvoicedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "invoiced_euros_total",
			Help: "Sum of created invoice totals in euros.",
		}),
		PersonsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "persons_skipped_total",
			Help: "Persons excluded from invoicing.",
		}, []string{"reason"}),
		PersonErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "person_errors_total",
			Help: "Persons whose invoice failed.",
		}, []string{"kind"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time the run finished.",
		}),
	}
	m.registry.MustRegister(
		m.BookingsRead, m.BookingsBilled, m.InvoicesCreated, m.InvoicesDrafted,
		m.InvoicedAmount, m.PersonsSkipped, m.PersonErrors, m.LastRunTimestamp,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile stores the current values in the textfile collector format.
func (m *Metrics) WriteTextfile(path string) error {
	m.LastRunTimestamp.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
