package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.InvoicesCreated.Inc()
	m.PersonsSkipped.WithLabelValues(ReasonUnrecognized).Add(2)

	if got := testutil.ToFloat64(m.InvoicesCreated); got != 1 {
		t.Errorf("expected 1 invoice, got %v", got)
	}
	if got := testutil.ToFloat64(m.PersonsSkipped.WithLabelValues(ReasonUnrecognized)); got != 2 {
		t.Errorf("expected 2 skipped, got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.BookingsRead.Add(3)

	path := filepath.Join(t.TempDir(), "courtbill.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "courtbill_bookings_read_total 3") {
		t.Errorf("unexpected textfile:\n%s", data)
	}
}
