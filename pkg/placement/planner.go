package placement

import (
	"context"
	"sort"
	"time"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/gwerr"
)

// candidateSets is the number of candidate replica sets produced by a single Plan call.
// With three datacenters, three primary/secondary/tertiary tuples cover failover while
// keeping planning bounded.
const candidateSets = 3

// Planner produces ordered candidate replica sets for new objects.
type Planner struct {
	view *View

	minCopies int
	maxCopies int

	maxUtilizationPct         int
	maxOperatorUtilizationPct int

	metrics Metrics
}

// Config configures a Planner.
type Config struct {
	MinCopies                 int
	MaxCopies                 int
	MaxUtilizationPct         int
	MaxOperatorUtilizationPct int
}

// NewPlanner constructs a Planner backed by the given placement view.
func NewPlanner(view *View, cfg Config) *Planner {
	if cfg.MinCopies <= 0 {
		cfg.MinCopies = 1
	}
	if cfg.MaxCopies <= 0 || cfg.MaxCopies > 9 {
		cfg.MaxCopies = 9
	}
	// Reconcile: the operator threshold can never be stricter than the normal one.
	if cfg.MaxOperatorUtilizationPct < cfg.MaxUtilizationPct {
		raised := 92
		if cfg.MaxUtilizationPct > raised {
			raised = cfg.MaxUtilizationPct
		}
		cfg.MaxOperatorUtilizationPct = raised
	}

	return &Planner{
		view:                      view,
		minCopies:                 cfg.MinCopies,
		maxCopies:                 cfg.MaxCopies,
		maxUtilizationPct:         cfg.MaxUtilizationPct,
		maxOperatorUtilizationPct: cfg.MaxOperatorUtilizationPct,
	}
}

// SetMetrics attaches a metrics sink for subsequent Plan calls.
func (p *Planner) SetMetrics(m Metrics) {
	p.metrics = m
}

// Plan produces up to candidateSets ordered candidate replica sets of length copies.
// A zero size always yields an empty plan: zero-byte objects carry no replica set.
func (p *Planner) Plan(ctx context.Context, size int64, copies int, operator bool) ([]ReplicaSet, error) {
	ctx, span := telemetry.StartPlacementSpan(ctx, "plan",
		telemetry.Size(size), telemetry.Durability(copies))
	defer span.End()
	_ = ctx

	if size == 0 {
		return nil, nil
	}
	if copies < p.minCopies || copies > p.maxCopies {
		err := gwerr.NewInvalidDurabilityLevel(copies, p.minCopies, p.maxCopies)
		recordPlan(p.metrics, copies, 0, err)
		return nil, err
	}

	maxUtil := p.maxUtilizationPct
	if operator {
		maxUtil = p.maxOperatorUtilizationPct
	}

	nodes := p.view.Healthy(maxUtil)
	if len(nodes) < copies {
		err := gwerr.NewNotEnoughSpace(copies)
		recordPlan(p.metrics, copies, 0, err)
		return nil, err
	}

	byDatacenter := groupByDatacenter(nodes)
	datacenters := datacenterNames(byDatacenter)

	sets := make([]ReplicaSet, 0, candidateSets)
	for attempt := 0; attempt < candidateSets; attempt++ {
		set, ok := buildCandidate(byDatacenter, datacenters, copies, attempt)
		if !ok {
			break
		}
		sets = append(sets, set)
	}

	if len(sets) == 0 {
		err := gwerr.NewNotEnoughSpace(copies)
		recordPlan(p.metrics, copies, 0, err)
		return nil, err
	}

	recordPlan(p.metrics, copies, len(sets), nil)
	return sets, nil
}

// buildCandidate selects copies distinct nodes for the attempt-th candidate set,
// spreading across distinct datacenters when there are at least as many datacenters
// as requested copies; otherwise it allows repetition while minimizing collisions.
func buildCandidate(byDatacenter map[string][]Node, datacenters []string, copies, attempt int) (ReplicaSet, bool) {
	if len(datacenters) == 0 {
		return nil, false
	}

	set := make(ReplicaSet, 0, copies)
	used := make(map[string]bool, copies)

	if copies <= len(datacenters) {
		// Rotate the starting datacenter per attempt so successive candidate sets
		// prefer different primaries.
		for i := 0; i < len(datacenters) && len(set) < copies; i++ {
			dc := datacenters[(i+attempt)%len(datacenters)]
			n, ok := pickFromDatacenter(byDatacenter[dc], used, attempt)
			if !ok {
				continue
			}
			set = append(set, n)
			used[n.ID] = true
		}
	} else {
		// More copies than datacenters: allow repetition, round-robin datacenters
		// to minimize intra-datacenter collisions.
		for i := 0; len(set) < copies; i++ {
			dc := datacenters[(i+attempt)%len(datacenters)]
			n, ok := pickFromDatacenter(byDatacenter[dc], used, attempt)
			if !ok {
				if i > copies*len(datacenters)+copies {
					break
				}
				continue
			}
			set = append(set, n)
			used[n.ID] = true
			if i > copies*4 {
				break
			}
		}
	}

	if len(set) < copies {
		return nil, false
	}
	return set, true
}

// pickFromDatacenter returns the attempt-th unused node from a datacenter's node list,
// cycling through it so repeated calls (across candidate sets) prefer different nodes.
func pickFromDatacenter(nodes []Node, used map[string]bool, attempt int) (Node, bool) {
	if len(nodes) == 0 {
		return Node{}, false
	}
	for i := 0; i < len(nodes); i++ {
		n := nodes[(i+attempt)%len(nodes)]
		if !used[n.ID] {
			return n, true
		}
	}
	return Node{}, false
}

func groupByDatacenter(nodes []Node) map[string][]Node {
	m := make(map[string][]Node)
	for _, n := range nodes {
		m[n.Datacenter] = append(m[n.Datacenter], n)
	}
	for dc := range m {
		sort.Slice(m[dc], func(i, j int) bool { return m[dc][i].ID < m[dc][j].ID })
	}
	return m
}

func datacenterNames(byDatacenter map[string][]Node) []string {
	names := make([]string, 0, len(byDatacenter))
	for dc := range byDatacenter {
		names = append(names, dc)
	}
	sort.Strings(names)
	return names
}

// now is overridable in tests that need deterministic staleness checks.
var now = time.Now
