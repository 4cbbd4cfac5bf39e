package metrics

import "github.com/nimbusstore/gateway/pkg/placement"

// NewPlacementMetrics creates a Prometheus-backed placement.Metrics instance.
//
// Returns nil if metrics are not enabled, for callers to pass into View.SetMetrics
// and Planner.SetMetrics.
func NewPlacementMetrics() placement.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusPlacementMetrics()
}

var newPrometheusPlacementMetrics func() placement.Metrics

// RegisterPlacementMetricsConstructor registers the Prometheus constructor for
// placement.Metrics. Called by pkg/metrics/prometheus's init.
func RegisterPlacementMetricsConstructor(constructor func() placement.Metrics) {
	newPrometheusPlacementMetrics = constructor
}
