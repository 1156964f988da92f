package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for access control.
type Metrics struct {
	RequestsCreated  prometheus.Counter
	RequestsResolved *prometheus.CounterVec
	Views            *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "legitify_access_requests_created_total",
			Help: "Total number of verifier access requests",
		}),
		RequestsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_access_requests_resolved_total",
			Help: "Total number of access requests resolved by holders, labeled by status",
		}, []string{"status"}),
		Views: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_document_views_total",
			Help: "Total number of document views, labeled by integrity result",
		}, []string{"verified"}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.RequestsCreated.Inc()
}

func (m *Metrics) IncrementResolved(status string) {
	m.RequestsResolved.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementView(verified bool) {
	label := "false"
	if verified {
		label = "true"
	}
	m.Views.WithLabelValues(label).Inc()
}
