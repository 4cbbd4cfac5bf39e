package placement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	utilization map[string]int
}

func (f *fakeChecker) CheckHealth(ctx context.Context, n Node) (Node, error) {
	if u, ok := f.utilization[n.ID]; ok {
		n.UtilizationPct = u
	}
	return n, nil
}

func TestViewHealthyFiltersStaleAndOverUtilized(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	recent := time.Now()

	v := NewView([]Node{
		{ID: "fresh", UtilizationPct: 10, LastHeartbeat: recent},
		{ID: "stale", UtilizationPct: 10, LastHeartbeat: past},
		{ID: "full", UtilizationPct: 99, LastHeartbeat: recent},
	}, nil, time.Minute, 5*time.Minute)

	healthy := v.Healthy(90)
	ids := map[string]bool{}
	for _, n := range healthy {
		ids[n.ID] = true
	}
	assert.True(t, ids["fresh"])
	assert.False(t, ids["stale"])
	assert.False(t, ids["full"])
}

func TestViewUpsertAndRemove(t *testing.T) {
	v := NewView(nil, nil, time.Minute, 0)
	v.Upsert(Node{ID: "n1", LastHeartbeat: time.Now()})
	require.Len(t, v.Snapshot(), 1)

	v.Remove("n1")
	assert.Empty(t, v.Snapshot())
}

func TestViewBackgroundRefresh(t *testing.T) {
	checker := &fakeChecker{utilization: map[string]int{"n1": 77}}
	v := NewView([]Node{{ID: "n1", UtilizationPct: 10, LastHeartbeat: time.Now()}}, checker, 10*time.Millisecond, time.Minute)

	v.Start(context.Background())
	defer v.Stop()

	require.Eventually(t, func() bool {
		snap := v.Snapshot()
		return len(snap) == 1 && snap[0].UtilizationPct == 77
	}, time.Second, 5*time.Millisecond)
}

func TestViewStartNoopWithoutChecker(t *testing.T) {
	v := NewView(nil, nil, time.Millisecond, 0)
	v.Start(context.Background())
	v.Stop() // should not block or panic
}
