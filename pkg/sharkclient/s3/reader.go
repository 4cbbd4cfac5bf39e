package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// ErrObjectNotFound is returned when the canonical key for an object has
// never been written (or was written to a different node).
var ErrObjectNotFound = errors.New("sharkclient/s3: object not found")

// Reader adapts a Shark to object.ReplicaReader. It is a distinct type from
// Shark because ReplicaReader's Open has a different signature (range bounds
// instead of a declared size) than fanout.ReplicaWriter/mpu.PartWriter's Open,
// and Go does not allow two methods named Open on the same type.
type Reader struct {
	*Shark
}

// NewReader wraps s for use wherever an object.ReplicaReader is required.
func NewReader(s *Shark) *Reader {
	return &Reader{Shark: s}
}

// Open implements object.ReplicaReader by issuing a ranged GetObject against
// the canonical object key.
func (r *Reader) Open(ctx context.Context, node placement.Node, objectID string, rangeStart, rangeEnd int64) (io.ReadCloser, error) {
	s := r.Shark
	ctx, span := telemetry.StartSharkSpan(ctx, "read", node.ID, telemetry.ContentID(objectID))
	defer span.End()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketFor(node.ID)),
		Key:    aws.String(s.keyFor(objectID)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", rangeStart, rangeEnd)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("sharkclient/s3: get object %s: %w", objectID, err)
	}
	return out.Body, nil
}
