package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for organization membership.
type Metrics struct {
	OrganizationsCreated prometheus.Counter
	AffiliationsProposed *prometheus.CounterVec
	AffiliationsResolved *prometheus.CounterVec
	JoinRequests         *prometheus.CounterVec
	ReenrollFailures     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		OrganizationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "legitify_organizations_created_total",
			Help: "Total number of organizations created",
		}),
		AffiliationsProposed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_affiliations_proposed_total",
			Help: "Total number of affiliation proposals, labeled by initiating side",
		}, []string{"initiated_by"}),
		AffiliationsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_affiliations_resolved_total",
			Help: "Total number of affiliation responses, labeled by resulting status",
		}, []string{"status"}),
		JoinRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_join_requests_total",
			Help: "Total number of organization join requests, labeled by lifecycle status",
		}, []string{"status"}),
		ReenrollFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "legitify_join_reenroll_failures_total",
			Help: "Total number of approved join requests whose ledger re-enrollment failed",
		}),
	}
}

func (m *Metrics) IncrementOrganizations() {
	m.OrganizationsCreated.Inc()
}

func (m *Metrics) IncrementProposed(initiatedBy string) {
	m.AffiliationsProposed.WithLabelValues(initiatedBy).Inc()
}

func (m *Metrics) IncrementResolved(status string) {
	m.AffiliationsResolved.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementJoinRequests(status string) {
	m.JoinRequests.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementReenrollFailures() {
	m.ReenrollFailures.Inc()
}
