package mpu

import (
	"context"

	"github.com/nimbusstore/gateway/pkg/config"
	"github.com/nimbusstore/gateway/pkg/fanout"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// FinalizeClient invokes the storage-node finalize RPC that assembles a committed
// upload's parts into its final object bytes and returns the resulting content
// digest (§4.8). Implemented by pkg/sharkclient; kept narrow here, mirroring
// fanout.ReplicaWriter and object.ReplicaReader, to avoid a dependency cycle.
type FinalizeClient interface {
	Finalize(ctx context.Context, node placement.Node, uploadID, account, objectID string, nbytes int64, parts []string) (digest string, err error)
}

// PartWriter opens a write stream for a single multipart-upload part, reusing the
// replica set frozen on the upload record rather than an independent placement
// decision (§4.7 MPU-upload-part: "bypass independent placement").
type PartWriter interface {
	Open(ctx context.Context, node placement.Node, objectID string, size int64) (fanout.ReplicaStream, error)
}

// Application is the dependency-injection root for the MPU pipelines, constructed
// once at process startup alongside object.Application.
type Application struct {
	Metadata metadatastore.Store
	Planner  *placement.Planner
	View     *placement.View
	Parts    PartWriter
	Finalize FinalizeClient
	Config   *config.Config

	// FanoutMetrics is passed through to every fanout.Stream call; nil records nothing.
	FanoutMetrics fanout.Metrics
}
