package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"salgsmotor/internal/platform/metrics"
)

// Metrics records batch progress. A nil *Metrics records nothing.
type Metrics struct {
	companies       *prometheus.CounterVec
	companyDuration prometheus.Histogram
	runDuration     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		companies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sync",
			Name:      "companies_total",
			Help:      "Processed companies by status (success, partial, skipped, failed)",
		}, []string{"status"}),
		companyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sync",
			Name:      "company_duration_seconds",
			Help:      "Time to resolve, enrich, plan and apply one company",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		runDuration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sync",
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the most recent batch run",
		}),
	}
}

func (m *Metrics) ObserveCompany(status Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.companies.WithLabelValues(string(status)).Inc()
	m.companyDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRun(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Set(elapsed.Seconds())
}
