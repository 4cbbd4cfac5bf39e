package fanout

import "time"

// Metrics records fan-out stream activity. A nil Metrics records nothing, matching
// the nil-safety convention used across the other component packages.
type Metrics interface {
	// RecordAttempt reports the outcome of streaming to one candidate set.
	RecordAttempt(nodeCount int, bytes int64, duration time.Duration, err error)
	// RecordStream reports the outcome of an entire Stream call, across every
	// candidate set it tried.
	RecordStream(attempts int, bytes int64, duration time.Duration, err error)
}

func recordAttempt(m Metrics, nodeCount int, bytes int64, start time.Time, err error) {
	if m == nil {
		return
	}
	m.RecordAttempt(nodeCount, bytes, time.Since(start), err)
}

func recordStream(m Metrics, attempts int, bytes int64, start time.Time, err error) {
	if m == nil {
		return
	}
	m.RecordStream(attempts, bytes, time.Since(start), err)
}
