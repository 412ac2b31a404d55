package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Operation status labels.
const (
	statusOK        = "ok"
	statusError     = "error"
	statusSwallowed = "swallowed"
)

// Metrics holds the Prometheus collectors for a Connection.
// A nil *Metrics records nothing.
type Metrics struct {
	Operations *prometheus.CounterVec
	Retries    prometheus.Counter
	Bindings   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when reg is non-nil.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of container operations",
			},
			[]string{"operation", "status"},
		),
		Retries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upsert_retries_total",
				Help:      "Total number of upsert retries",
			},
		),
		Bindings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "container_bindings",
				Help:      "Number of cached container bindings",
			},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Operations, m.Retries, m.Bindings} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(operation, status string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) retry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) setBindings(n int) {
	if m == nil {
		return
	}
	m.Bindings.Set(float64(n))
}
