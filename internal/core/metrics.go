package core

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Reload entry outcomes reported through Metrics.
const (
	outcomeLoaded  = "loaded"
	outcomeSkipped = "skipped"
)

// Metrics publishes store activity as prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	persists *prometheus.CounterVec
	entries  *prometheus.CounterVec
	corrupt  prometheus.Counter
	records  prometheus.Gauge
}

// NewMetrics creates the store collectors and registers them with reg. A
// collector already registered by an earlier call is reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hbnb",
			Subsystem: "store",
			Name:      "persist_total",
			Help:      "Snapshot writes by result.",
		}, []string{"result"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hbnb",
			Subsystem: "store",
			Name:      "reload_entries_total",
			Help:      "Snapshot entries seen during reload by outcome.",
		}, []string{"outcome"}),
		corrupt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hbnb",
			Subsystem: "store",
			Name:      "reload_corrupt_total",
			Help:      "Snapshot documents that could not be parsed.",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hbnb",
			Subsystem: "store",
			Name:      "records",
			Help:      "Records currently held in the registry.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.persists, err = register(reg, m.persists); err != nil {
		return nil, err
	}
	if m.entries, err = register(reg, m.entries); err != nil {
		return nil, err
	}
	if m.corrupt, err = register(reg, m.corrupt); err != nil {
		return nil, err
	}
	if m.records, err = register(reg, m.records); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) persisted(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.persists.WithLabelValues(result).Inc()
}

func (m *Metrics) entry(outcome string) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) corruptDocument() {
	if m == nil {
		return
	}
	m.corrupt.Inc()
}

func (m *Metrics) size(n int) {
	if m == nil {
		return
	}
	m.records.Set(float64(n))
}
