package aggregator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/platform/metrics"
)

// Metrics records source calls and enrichment outcomes. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	sourceCalls    *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	enrichments    *prometheus.CounterVec
	notes          *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sourceCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "enrichment",
			Name:      "source_calls_total",
			Help:      "Enrichment source calls by source and result (ok, error, skipped)",
		}, []string{"source", "result"}),
		sourceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "enrichment",
			Name:      "source_duration_seconds",
			Help:      "Latency of enrichment source calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		enrichments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "enrichment",
			Name:      "bundles_total",
			Help:      "Enrichments by outcome (complete, partial, failed)",
		}, []string{"outcome"}),
		notes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "enrichment",
			Name:      "notes_total",
			Help:      "Sales notes by origin (ai, fallback, template)",
		}, []string{"origin"}),
	}
}

func (m *Metrics) ObserveSource(src models.Source, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sourceCalls.WithLabelValues(string(src), result).Inc()
	if result != "skipped" {
		m.sourceDuration.WithLabelValues(string(src)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) IncEnrichment(outcome string) {
	if m == nil {
		return
	}
	m.enrichments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncNote(origin string) {
	if m == nil {
		return
	}
	m.notes.WithLabelValues(origin).Inc()
}
