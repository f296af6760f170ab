// Package metrics exposes pipeline run counters for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FeedDigest/internal/domain"
)

const namespace = "feeddigest"

// Metrics holds the counters updated after every pipeline run.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	ItemsTotal       *prometheus.CounterVec
	SourceFailures   *prometheus.CounterVec
	LastRunTimestamp prometheus.Gauge
}

// New builds a dedicated registry with Go runtime collectors and run metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"outcome"}),
		ItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Articles handled by the pipeline by stage",
		}, []string{"stage"}),
		SourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Feed sources that failed to fetch",
		}, []string{"source"}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
}

// Registry is the gatherer served on /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one run result.
func (m *Metrics) ObserveRun(result domain.RunResult, runErr error) {
	if m == nil {
		return
	}
	if runErr != nil || !result.Success {
		m.RunsTotal.WithLabelValues("error").Inc()
		return
	}

	m.RunsTotal.WithLabelValues("success").Inc()
	m.ItemsTotal.WithLabelValues("fetched").Add(float64(result.TotalFetched))
	m.ItemsTotal.WithLabelValues("new").Add(float64(result.NewArticles))
	m.ItemsTotal.WithLabelValues("processed").Add(float64(result.Processed))
	m.ItemsTotal.WithLabelValues("failed").Add(float64(result.Failed))
	m.ItemsTotal.WithLabelValues("rate_limited").Add(float64(result.RateLimited))
	for _, failure := range result.SourceFailures {
		m.SourceFailures.WithLabelValues(failure.Source.Name).Inc()
	}
	m.LastRunTimestamp.Set(float64(result.Timestamp.Unix()))
}
