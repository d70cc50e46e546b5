package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the rig's prometheus instruments. All methods are safe
// on a nil receiver so instrumentation stays optional at wiring time.
type Metrics struct {
	checksTotal   *prometheus.CounterVec
	samplesTotal  prometheus.Counter
	readFailures  prometheus.Counter
	eventsDropped prometheus.Counter
	sampleAge     prometheus.Gauge
}

// New registers the rig instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		checksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hwtest_checks_total",
			Help: "Check results recorded at check points, by result.",
		}, []string{"result"}),
		samplesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hwtest_samples_total",
			Help: "Samples published by the background sampler.",
		}),
		readFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hwtest_read_failures_total",
			Help: "Driver read failures skipped by the sampler.",
		}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "hwtest_events_dropped_total",
			Help: "Telemetry events discarded by the drop-oldest sink policy.",
		}),
		sampleAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hwtest_sample_generation",
			Help: "Generation counter of the latest published sample.",
		}),
	}
}

func (m *Metrics) ObserveCheck(passed bool) {
	if m == nil {
		return
	}
	result := "fail"
	if passed {
		result = "pass"
	}
	m.checksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSample(generation uint64) {
	if m == nil {
		return
	}
	m.samplesTotal.Inc()
	m.sampleAge.Set(float64(generation))
}

func (m *Metrics) ObserveReadFailure() {
	if m == nil {
		return
	}
	m.readFailures.Inc()
}

func (m *Metrics) ObserveDroppedEvent() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}
