// Package metrics is the gateway's indirection layer between the component packages
// that declare a nil-safe Metrics interface (pkg/placement, pkg/fanout,
// pkg/sharkclient) and pkg/metrics/prometheus, which implements them.
//
// The indirection exists to avoid an import cycle: a component package cannot import
// pkg/metrics/prometheus directly (prometheus imports the component package, to
// implement its interface), so pkg/metrics/prometheus instead registers a
// constructor here during its own package init, and callers go through the
// constructors in this package (NewSharkClientMetrics, NewPlacementMetrics,
// NewFanoutMetrics) without ever importing prometheus themselves.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide Prometheus registry that every metrics
// constructor in this package registers collectors against. It must be called
// before any NewXMetrics constructor, normally once at process startup when
// config.MetricsConfig.Enabled is true. Calling it more than once replaces the
// registry; existing collectors from the old one are orphaned, so callers should
// only call it once.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return registry
}

// IsEnabled reports whether InitRegistry has been called. Every NewXMetrics
// constructor in this package checks this first and returns nil when false, so a
// gateway running with metrics.enabled=false pays no instrumentation overhead.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry. Panics if InitRegistry was never
// called; constructors only reach this after checking IsEnabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		panic("metrics: GetRegistry called before InitRegistry")
	}
	return registry
}

// Handler returns the HTTP handler gatewayd mounts at GET /metrics. Returns nil if
// metrics are not enabled.
func Handler() http.Handler {
	if !IsEnabled() {
		return nil
	}
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}
