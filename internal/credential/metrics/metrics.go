package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for credential lifecycle operations.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	PaymentChecks   *prometheus.CounterVec
	StatusLookups   *prometheus.CounterVec
	PaymentDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zeropass_credential_transitions_total",
			Help: "Credential state transitions, labeled by target status",
		}, []string{"to"}),
		PaymentChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zeropass_credential_payment_checks_total",
			Help: "Payment verifications, labeled by outcome",
		}, []string{"outcome"}),
		StatusLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zeropass_credential_status_lookups_total",
			Help: "Status lookups, labeled by derived status",
		}, []string{"status"}),
		PaymentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zeropass_credential_payment_check_duration_seconds",
			Help:    "Time spent in the payment verifier",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncTransition(to string) {
	m.Transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) ObservePayment(outcome string, seconds float64) {
	m.PaymentChecks.WithLabelValues(outcome).Inc()
	m.PaymentDuration.Observe(seconds)
}

func (m *Metrics) IncStatusLookup(status string) {
	m.StatusLookups.WithLabelValues(status).Inc()
}
