package object

import (
	"github.com/nimbusstore/gateway/pkg/config"
	"github.com/nimbusstore/gateway/pkg/fanout"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// Application is the single dependency-injection root constructed once at process
// startup and passed by reference to every request pipeline; it holds no per-request
// state and every field is safe for concurrent use (grounded on the teacher's
// pkg/registry.Registry, generalized from named multi-store registration to a fixed
// set of process-wide singletons).
type Application struct {
	Metadata metadatastore.Store
	Planner  *placement.Planner
	View     *placement.View
	Fanout   fanout.ReplicaWriter
	Reader   ReplicaReader
	Config   *config.Config

	// FanoutMetrics is passed through to every fanout.Stream call; nil records nothing.
	FanoutMetrics fanout.Metrics
}
