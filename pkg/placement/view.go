package placement

import (
	"context"
	"sync"
	"time"

	"github.com/nimbusstore/gateway/internal/logger"
)

// HealthChecker polls a single storage node for its current utilization and liveness.
// Implemented by pkg/sharkclient; kept as an interface here to avoid a dependency cycle.
type HealthChecker interface {
	CheckHealth(ctx context.Context, node Node) (Node, error)
}

// View is the process-wide, read-mostly view of known storage nodes, refreshed on a
// background interval. Lifecycle: init -> refresh-loop -> teardown, started and stopped
// by the Application registry.
type View struct {
	mu    sync.RWMutex
	nodes map[string]Node

	checker    HealthChecker
	interval   time.Duration
	staleAfter time.Duration
	metrics    Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewView constructs a View seeded with the given nodes. Pass a nil checker to run the
// view without a background poller (useful in tests that seed nodes directly).
func NewView(seed []Node, checker HealthChecker, interval, staleAfter time.Duration) *View {
	nodes := make(map[string]Node, len(seed))
	for _, n := range seed {
		nodes[n.ID] = n
	}
	return &View{
		nodes:      nodes,
		checker:    checker,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

// SetMetrics attaches a metrics sink for the refresh loop. It must be called before
// Start; the registry wiring does this once at process startup.
func (v *View) SetMetrics(m Metrics) {
	v.metrics = m
}

// Start begins the background refresh loop. It is a no-op if no HealthChecker was provided.
func (v *View) Start(ctx context.Context) {
	if v.checker == nil {
		return
	}
	v.ctx, v.cancel = context.WithCancel(ctx)
	v.wg.Add(1)
	go v.run()
}

// Stop gracefully stops the refresh loop, blocking until it has exited.
func (v *View) Stop() {
	if v.cancel != nil {
		v.cancel()
	}
	v.wg.Wait()
}

func (v *View) run() {
	defer v.wg.Done()

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-v.ctx.Done():
			return
		case <-ticker.C:
			v.refresh()
		}
	}
}

func (v *View) refresh() {
	for _, n := range v.Snapshot() {
		start := now()
		updated, err := v.checker.CheckHealth(v.ctx, n)
		recordHealthCheck(v.metrics, n.ID, start, err)
		if err != nil {
			logger.WarnCtx(v.ctx, "shark health check failed",
				logger.SharkID(n.ID), logger.Err(err))
			continue
		}
		updated.LastHeartbeat = now()
		recordNodeState(v.metrics, updated)
		v.Upsert(updated)
	}
}

// Snapshot returns a copy of all currently known nodes.
func (v *View) Snapshot() []Node {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]Node, 0, len(v.nodes))
	for _, n := range v.nodes {
		out = append(out, n)
	}
	return out
}

// Healthy returns the nodes currently eligible for placement at the given utilization bound.
func (v *View) Healthy(maxUtilizationPct int) []Node {
	nowT := now()
	all := v.Snapshot()
	out := make([]Node, 0, len(all))
	for _, n := range all {
		if n.Healthy(maxUtilizationPct, v.staleAfter, nowT) {
			out = append(out, n)
		}
	}
	return out
}

// Upsert inserts or replaces a node's entry.
func (v *View) Upsert(n Node) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nodes[n.ID] = n
}

// Remove deletes a node from the view.
func (v *View) Remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.nodes, id)
}
