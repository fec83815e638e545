package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConfirmationMetrics counts confirmation outcomes and tracks end-to-end
// latency of the transaction.
type ConfirmationMetrics struct {
	Confirmations *prometheus.CounterVec
	DurationMS    prometheus.Histogram
}

func NewConfirmationMetrics(reg prometheus.Registerer) *ConfirmationMetrics {
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "webhook",
		Subsystem: "orders",
		Name:      "confirmations_total",
		Help:      "Total number of processed confirmation commands.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "webhook",
		Subsystem: "orders",
		Name:      "confirmation_duration_ms",
		Help:      "Confirmation transaction latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	reg.MustRegister(confirmations, duration)
	return &ConfirmationMetrics{Confirmations: confirmations, DurationMS: duration}
}

// Observe records one confirmation attempt. Nil-safe so callers can run
// without metrics wired.
func (m *ConfirmationMetrics) Observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Confirmations.WithLabelValues(outcome).Inc()
	m.DurationMS.Observe(float64(elapsed.Milliseconds()))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
