package metrics

import "github.com/nimbusstore/gateway/pkg/fanout"

// NewFanoutMetrics creates a Prometheus-backed fanout.Metrics instance.
//
// Returns nil if metrics are not enabled, for callers to pass as the trailing
// argument to fanout.Stream.
func NewFanoutMetrics() fanout.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusFanoutMetrics()
}

var newPrometheusFanoutMetrics func() fanout.Metrics

// RegisterFanoutMetricsConstructor registers the Prometheus constructor for
// fanout.Metrics. Called by pkg/metrics/prometheus's init.
func RegisterFanoutMetricsConstructor(constructor func() fanout.Metrics) {
	newPrometheusFanoutMetrics = constructor
}
