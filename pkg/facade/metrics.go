package facade

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments every façade operation with a request counter
// (labeled by operation and outcome) and a latency histogram (labeled by
// operation), the same per-operation shape the teacher's cache/badger/s3
// metrics use.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the façade's metrics against reg. Pass nil to get
// a Metrics whose methods are all safe no-ops, for call sites that don't
// want metrics (e.g. most unit tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	return &Metrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharenode_facade_requests_total",
				Help: "Total facade operations by name and outcome",
			},
			[]string{"operation", "outcome"}, // outcome: "ok", "error"
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "sharenode_facade_duration_seconds",
				Help: "Facade operation latency in seconds",
				Buckets: []float64{
					0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5,
				},
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
