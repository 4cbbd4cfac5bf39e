package placement

import "time"

// CircuitState describes a storage node's circuit-breaker state as observed by the
// shark client (pkg/sharkclient); the placement view filters nodes whose circuit is open.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// Node describes a storage node ("shark") known to the placement view.
type Node struct {
	ID         string
	Datacenter string
	BaseURL    string

	AvailableBytes int64
	UtilizationPct int
	LastHeartbeat  time.Time
	Circuit        CircuitState
}

// Healthy reports whether a node should be considered for new placements.
func (n Node) Healthy(maxUtilizationPct int, staleAfter time.Duration, now time.Time) bool {
	if n.Circuit == CircuitOpen {
		return false
	}
	if n.UtilizationPct > maxUtilizationPct {
		return false
	}
	if staleAfter > 0 && now.Sub(n.LastHeartbeat) > staleAfter {
		return false
	}
	return true
}

// ReplicaSet is an ordered group of storage nodes a single object's bytes are written to.
type ReplicaSet []Node

// IDs returns the node identifiers of the set, in order.
func (rs ReplicaSet) IDs() []string {
	ids := make([]string, len(rs))
	for i, n := range rs {
		ids[i] = n.ID
	}
	return ids
}
