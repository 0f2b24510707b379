package memo

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors store activity into prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Entries    prometheus.Gauge
	Hits       prometheus.Counter
	Computes   prometheus.Counter
	Collisions prometheus.Counter
}

// NewMetrics builds the store collectors and registers them on reg
// when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taengine",
			Subsystem: "memo",
			Name:      "entries",
			Help:      "Cache entries registered in the current run",
		}),
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taengine",
			Subsystem: "memo",
			Name:      "hits_total",
			Help:      "Reads answered from the value already computed for the bar",
		}),
		Computes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taengine",
			Subsystem: "memo",
			Name:      "computes_total",
			Help:      "Step evaluations, at most one per entry per bar",
		}),
		Collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taengine",
			Subsystem: "memo",
			Name:      "collisions_total",
			Help:      "Keys found holding state of an unexpected type",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Entries, m.Hits, m.Computes, m.Collisions)
	}
	return m
}

func (m *Metrics) entries(n int) {
	if m != nil {
		m.Entries.Set(float64(n))
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *Metrics) compute() {
	if m != nil {
		m.Computes.Inc()
	}
}

func (m *Metrics) collision() {
	if m != nil {
		m.Collisions.Inc()
	}
}
