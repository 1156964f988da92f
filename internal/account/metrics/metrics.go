package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registrations *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_account_registrations_total",
			Help: "Total number of registration attempts, labeled by role and outcome",
		}, []string{"role", "outcome"}),
	}
}

func (m *Metrics) IncrementRegistration(role, outcome string) {
	m.Registrations.WithLabelValues(role, outcome).Inc()
}
