// Package telemetry provides Prometheus metrics for feed ingestion, sync jobs and the HTTP API.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "dropship"

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
	// RuntimeCollectors registers the Go runtime and process collectors
	RuntimeCollectors bool
}

// Registry owns a private Prometheus registry and the metric sets registered on it.
// A disabled Registry hands out metric sets that record into an unexported
// registry, so callers never need nil checks.
type Registry struct {
	registry  *prometheus.Registry
	namespace string
	enabled   bool
}

// NewRegistry creates a metrics registry
func NewRegistry(cfg MetricsConfig) *Registry {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	// A private registry avoids conflicts with the global default registry
	registry := prometheus.NewRegistry()
	if cfg.Enabled && cfg.RuntimeCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return &Registry{
		registry:  registry,
		namespace: cfg.Namespace,
		enabled:   cfg.Enabled,
	}
}

// IsEnabled reports whether metrics are exported
func (r *Registry) IsEnabled() bool {
	return r.enabled
}

// Gatherer exposes the underlying registry for tests and custom exporters
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns the /metrics scrape handler. A disabled registry answers 404.
func (r *Registry) Handler() http.Handler {
	if !r.enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (r *Registry) mustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}
