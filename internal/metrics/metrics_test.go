package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCheck(true)
	m.ObserveCheck(true)
	m.ObserveCheck(false)
	m.ObserveSample(7)
	m.ObserveReadFailure()
	m.ObserveDroppedEvent()

	if got := testutil.ToFloat64(m.checksTotal.WithLabelValues("pass")); got != 2 {
		t.Fatalf("pass checks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.checksTotal.WithLabelValues("fail")); got != 1 {
		t.Fatalf("fail checks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.samplesTotal); got != 1 {
		t.Fatalf("samples = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sampleAge); got != 7 {
		t.Fatalf("generation gauge = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.readFailures); got != 1 {
		t.Fatalf("read failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.eventsDropped); got != 1 {
		t.Fatalf("dropped events = %v, want 1", got)
	}
}

func TestMetrics_NilReceiverSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveCheck(true)
	m.ObserveSample(1)
	m.ObserveReadFailure()
	m.ObserveDroppedEvent()
}
