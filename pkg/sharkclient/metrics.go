package sharkclient

import "time"

// Metrics records per-node, per-operation counters and latencies. A nil Metrics is
// valid everywhere below and simply records nothing, mirroring the teacher's
// S3Metrics nil-safety (pkg/metrics/s3.go) so sharkclient never pays for
// instrumentation it doesn't have a collector for yet.
type Metrics interface {
	ObserveOperation(operation, sharkID string, duration time.Duration, err error)
	RecordBytes(operation, sharkID string, n int64)
	RecordCircuitState(sharkID string, state string)
	RecordRetry(operation, sharkID string, attempt int)
}

func observeOperation(m Metrics, operation, sharkID string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.ObserveOperation(operation, sharkID, time.Since(start), err)
}

func recordBytes(m Metrics, operation, sharkID string, n int64) {
	if m == nil {
		return
	}
	m.RecordBytes(operation, sharkID, n)
}

func recordCircuitState(m Metrics, sharkID, state string) {
	if m == nil {
		return
	}
	m.RecordCircuitState(sharkID, state)
}

func recordRetry(m Metrics, operation, sharkID string, attempt int) {
	if m == nil {
		return
	}
	m.RecordRetry(operation, sharkID, attempt)
}
