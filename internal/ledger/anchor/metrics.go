package anchor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Queued    *prometheus.CounterVec
	Dropped   *prometheus.CounterVec
	Completed *prometheus.CounterVec
	Duration  prometheus.Histogram
	// CircuitOpen is 1 while the ledger breaker is open.
	CircuitOpen prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Queued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_anchor_tasks_queued_total",
			Help: "Ledger anchoring tasks accepted by the dispatcher",
		}, []string{"function"}),
		Dropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_anchor_tasks_dropped_total",
			Help: "Ledger anchoring tasks dropped because the queue was full or stopped",
		}, []string{"function"}),
		Completed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legitify_anchor_tasks_completed_total",
			Help: "Ledger anchoring tasks completed by outcome",
		}, []string{"function", "outcome"}),
		Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "legitify_anchor_task_duration_seconds",
			Help:    "Time spent submitting an anchoring task",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CircuitOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "legitify_anchor_circuit_open",
			Help: "Whether consecutive ledger failures have opened the anchoring circuit",
		}),
	}
}

func (m *Metrics) incQueued(fn string) {
	if m == nil {
		return
	}
	m.Queued.WithLabelValues(fn).Inc()
}

func (m *Metrics) incDropped(fn string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(fn).Inc()
}

func (m *Metrics) observe(fn string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "committed"
	}
	m.Completed.WithLabelValues(fn, outcome).Inc()
	m.Duration.Observe(d.Seconds())
}

func (m *Metrics) setCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}
