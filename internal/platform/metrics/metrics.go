package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process level gauges that do not belong to a single module.
type Metrics struct {
	LedgerPeerUp  *prometheus.GaugeVec
	DBConnections *prometheus.GaugeVec
	DBWaitCount   prometheus.Gauge
	BuildInfo     *prometheus.GaugeVec
}

// New creates and registers the process metrics.
func New() *Metrics {
	return &Metrics{
		LedgerPeerUp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "legitify_ledger_peer_up",
			Help: "Whether the first peer of an organization's connection profile was reachable at the last check",
		}, []string{"org"}),
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "legitify_db_connections",
			Help: "Database pool connections by state",
		}, []string{"state"}),
		DBWaitCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "legitify_db_wait_count",
			Help: "Total number of connections waited for",
		}),
		BuildInfo: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "legitify_build_info",
			Help: "Build version and environment of the running process",
		}, []string{"version", "environment"}),
	}
}

func (m *Metrics) SetLedgerPeerUp(org string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.LedgerPeerUp.WithLabelValues(org).Set(v)
}

func (m *Metrics) RecordDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
	m.DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
	m.DBWaitCount.Set(float64(stats.WaitCount))
}

func (m *Metrics) SetBuildInfo(version, environment string) {
	if m == nil {
		return
	}
	m.BuildInfo.WithLabelValues(version, environment).Set(1)
}
