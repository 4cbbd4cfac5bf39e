package metrics

import "github.com/nimbusstore/gateway/pkg/sharkclient"

// NewSharkClientMetrics creates a Prometheus-backed sharkclient.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which callers
// should pass straight into sharkclient.NewClient for zero-overhead instrumentation.
func NewSharkClientMetrics() sharkclient.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusSharkClientMetrics()
}

// newPrometheusSharkClientMetrics is assigned by pkg/metrics/prometheus/sharkclient.go
// during that package's init. The indirection breaks the import cycle described in
// this package's doc comment.
var newPrometheusSharkClientMetrics func() sharkclient.Metrics

// RegisterSharkClientMetricsConstructor registers the Prometheus constructor for
// sharkclient.Metrics. Called by pkg/metrics/prometheus's init.
func RegisterSharkClientMetricsConstructor(constructor func() sharkclient.Metrics) {
	newPrometheusSharkClientMetrics = constructor
}
