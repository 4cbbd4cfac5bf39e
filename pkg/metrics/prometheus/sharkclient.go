package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nimbusstore/gateway/pkg/metrics"
	"github.com/nimbusstore/gateway/pkg/sharkclient"
)

func init() {
	metrics.RegisterSharkClientMetricsConstructor(newSharkClientMetrics)
}

// sharkClientMetrics is the Prometheus implementation of sharkclient.Metrics.
type sharkClientMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
	circuitState      *prometheus.GaugeVec
	retriesTotal      *prometheus.CounterVec
}

func newSharkClientMetrics() sharkclient.Metrics {
	reg := metrics.GetRegistry()

	return &sharkClientMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbusgw_shark_operations_total",
				Help: "Total number of shark client operations by shark, operation, and status.",
			},
			[]string{"shark", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nimbusgw_shark_operation_duration_seconds",
				Help:    "Duration of shark client operations in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"shark", "operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbusgw_shark_bytes_total",
				Help: "Total bytes transferred to or from sharks by operation.",
			},
			[]string{"shark", "operation"},
		),
		circuitState: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nimbusgw_shark_circuit_state",
				Help: "Circuit breaker state per shark (0=closed, 1=half-open, 2=open).",
			},
			[]string{"shark"},
		),
		retriesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbusgw_shark_retries_total",
				Help: "Total number of retry attempts by shark and operation.",
			},
			[]string{"shark", "operation"},
		),
	}
}

func (m *sharkClientMetrics) ObserveOperation(operation, sharkID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(sharkID, operation, status).Inc()
	m.operationDuration.WithLabelValues(sharkID, operation).Observe(duration.Seconds())
}

func (m *sharkClientMetrics) RecordBytes(operation, sharkID string, n int64) {
	if n <= 0 {
		return
	}
	m.bytesTransferred.WithLabelValues(sharkID, operation).Add(float64(n))
}

func (m *sharkClientMetrics) RecordCircuitState(sharkID string, state string) {
	value := 0.0
	switch state {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	m.circuitState.WithLabelValues(sharkID).Set(value)
}

func (m *sharkClientMetrics) RecordRetry(operation, sharkID string, attempt int) {
	m.retriesTotal.WithLabelValues(sharkID, operation).Inc()
}
