package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nimbusstore/gateway/pkg/fanout"
	"github.com/nimbusstore/gateway/pkg/metrics"
)

func init() {
	metrics.RegisterFanoutMetricsConstructor(newFanoutMetrics)
}

// fanoutMetrics is the Prometheus implementation of fanout.Metrics.
type fanoutMetrics struct {
	attemptsTotal    *prometheus.CounterVec
	attemptBytes     prometheus.Histogram
	attemptDuration  *prometheus.HistogramVec
	streamsTotal     *prometheus.CounterVec
	streamAttempts   prometheus.Histogram
	streamDuration   *prometheus.HistogramVec
}

func newFanoutMetrics() fanout.Metrics {
	reg := metrics.GetRegistry()

	return &fanoutMetrics{
		attemptsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbusgw_fanout_attempts_total",
				Help: "Total number of replica-set write attempts by status.",
			},
			[]string{"status"},
		),
		attemptBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nimbusgw_fanout_attempt_bytes",
				Help:    "Size in bytes of each replica-set write attempt.",
				Buckets: prometheus.ExponentialBuckets(4096, 4, 10),
			},
		),
		attemptDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nimbusgw_fanout_attempt_duration_seconds",
				Help:    "Duration of a single replica-set write attempt in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		streamsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbusgw_fanout_streams_total",
				Help: "Total number of Stream calls by status.",
			},
			[]string{"status"},
		),
		streamAttempts: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nimbusgw_fanout_stream_attempts",
				Help:    "Number of candidate sets a Stream call tried before succeeding or exhausting.",
				Buckets: []float64{1, 2, 3},
			},
		),
		streamDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nimbusgw_fanout_stream_duration_seconds",
				Help:    "Total duration of a Stream call in seconds, across every candidate set it tried.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
	}
}

func (m *fanoutMetrics) RecordAttempt(nodeCount int, bytes int64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.attemptsTotal.WithLabelValues(status).Inc()
	m.attemptDuration.WithLabelValues(status).Observe(duration.Seconds())
	if bytes > 0 {
		m.attemptBytes.Observe(float64(bytes))
	}
}

func (m *fanoutMetrics) RecordStream(attempts int, bytes int64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.streamsTotal.WithLabelValues(status).Inc()
	m.streamDuration.WithLabelValues(status).Observe(duration.Seconds())
	if attempts > 0 {
		m.streamAttempts.Observe(float64(attempts))
	}
}
