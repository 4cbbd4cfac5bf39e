package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nimbusstore/gateway/pkg/metrics"
	"github.com/nimbusstore/gateway/pkg/placement"
)

func init() {
	metrics.RegisterPlacementMetricsConstructor(newPlacementMetrics)
}

// placementMetrics is the Prometheus implementation of placement.Metrics.
type placementMetrics struct {
	healthChecksTotal *prometheus.CounterVec
	healthCheckDur    *prometheus.HistogramVec
	circuitState      *prometheus.GaugeVec
	utilizationPct    *prometheus.GaugeVec
	plansTotal        *prometheus.CounterVec
	planCandidateSets *prometheus.HistogramVec
}

func newPlacementMetrics() placement.Metrics {
	reg := metrics.GetRegistry()

	return &placementMetrics{
		healthChecksTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbusgw_placement_health_checks_total",
				Help: "Total number of node health checks by node and status.",
			},
			[]string{"node", "status"},
		),
		healthCheckDur: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nimbusgw_placement_health_check_duration_seconds",
				Help:    "Duration of node health checks in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		circuitState: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nimbusgw_placement_node_circuit_state",
				Help: "Circuit state per node as last observed by the placement view (0=closed, 1=open, 2=half-open).",
			},
			[]string{"node"},
		),
		utilizationPct: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nimbusgw_placement_node_utilization_pct",
				Help: "Utilization percentage per node as last observed by the placement view.",
			},
			[]string{"node"},
		),
		plansTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nimbusgw_placement_plans_total",
				Help: "Total number of Plan calls by durability level and status.",
			},
			[]string{"copies", "status"},
		),
		planCandidateSets: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nimbusgw_placement_plan_candidate_sets",
				Help:    "Number of candidate replica sets a successful Plan call produced.",
				Buckets: []float64{1, 2, 3},
			},
			[]string{"copies"},
		),
	}
}

func (m *placementMetrics) RecordHealthCheck(nodeID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.healthChecksTotal.WithLabelValues(nodeID, status).Inc()
	m.healthCheckDur.WithLabelValues(nodeID).Observe(duration.Seconds())
}

func (m *placementMetrics) RecordCircuitState(nodeID string, state placement.CircuitState) {
	m.circuitState.WithLabelValues(nodeID).Set(float64(state))
}

func (m *placementMetrics) RecordUtilization(nodeID string, pct int) {
	m.utilizationPct.WithLabelValues(nodeID).Set(float64(pct))
}

func (m *placementMetrics) RecordPlan(copies int, candidateSets int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	copiesLabel := itoa(copies)
	m.plansTotal.WithLabelValues(copiesLabel, status).Inc()
	if err == nil {
		m.planCandidateSets.WithLabelValues(copiesLabel).Observe(float64(candidateSets))
	}
}
