package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"salgsmotor/internal/platform/metrics"
)

// Metrics counts cache lookups. A nil *Metrics is valid and records nothing.
type Metrics struct {
	lookups *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		lookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Enrichment cache lookups by result (hit, miss, degraded)",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncHit() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncMiss() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) IncDegraded() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("degraded").Inc()
}
