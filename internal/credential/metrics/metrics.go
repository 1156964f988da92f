package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for credential operations.
type Metrics struct {
	CredentialsIssued   *prometheus.CounterVec
	CredentialsResolved *prometheus.CounterVec
	Verifications       *prometheus.CounterVec
	PayloadBytes        prometheus.Histogram
}

// New registers and returns credential metrics collectors.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_credentials_issued_total",
			Help: "Total number of credentials issued, labeled by kind",
		}, []string{"kind"}),
		CredentialsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_credentials_resolved_total",
			Help: "Total number of holder decisions, labeled by resulting status",
		}, []string{"status"}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_credential_verifications_total",
			Help: "Total number of verify-by-email checks, labeled by outcome",
		}, []string{"outcome"}),
		PayloadBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "legitify_credential_payload_bytes",
			Help:    "Size distribution of issued credential payloads",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}
}

func (m *Metrics) IncrementIssued(kind string) {
	m.CredentialsIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementResolved(status string) {
	m.CredentialsResolved.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementVerification(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePayloadSize(size int) {
	m.PayloadBytes.Observe(float64(size))
}
