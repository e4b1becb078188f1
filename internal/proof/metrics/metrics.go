package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Generated      prometheus.Counter
	Verifications  *prometheus.CounterVec
	VerifyDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Generated: f.NewCounter(prometheus.CounterOpts{
			Name: "zeropass_proofs_generated_total",
			Help: "Proof payloads generated",
		}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zeropass_proof_verifications_total",
			Help: "Proof verifications, labeled by outcome (valid or failure reason)",
		}, []string{"outcome"}),
		VerifyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zeropass_proof_verify_duration_seconds",
			Help:    "Time taken to verify a proof payload",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncGenerated() {
	m.Generated.Inc()
}

func (m *Metrics) ObserveVerification(outcome string, seconds float64) {
	m.Verifications.WithLabelValues(outcome).Inc()
	m.VerifyDuration.Observe(seconds)
}
