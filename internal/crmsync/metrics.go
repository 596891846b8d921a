package crmsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"salgsmotor/internal/platform/metrics"
)

// Metrics counts CRM writes. A nil *Metrics records nothing.
type Metrics struct {
	writes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		writes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "crm",
			Name:      "writes_total",
			Help:      "CRM writes by kind (field, pipeline, log) and result (ok, retry, error)",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) IncWrite(kind, result string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(kind, result).Inc()
}
