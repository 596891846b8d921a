// Package metrics owns the Prometheus registry shared by the salgsmotor
// components and the two ways of exporting it: a scrape handler for serve
// and a Pushgateway push at the end of a batch run.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Namespace prefixes every collector name.
const Namespace = "salgsmotor"

// NewRegistry returns a registry with the Go runtime and process collectors.
// Components register their own collectors on it through promauto.With.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Push sends everything in g to a Pushgateway under job, replacing the
// previous push for the same job and run grouping. An empty url is a no-op.
func Push(ctx context.Context, url, job, runID string, g prometheus.Gatherer) error {
	if url == "" {
		return nil
	}
	pusher := push.New(url, job).Gatherer(g)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
