package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// CheckHealth implements placement.HealthChecker by confirming the shark's
// bucket is reachable. S3 has no notion of "free space" on a bucket, so
// AvailableBytes/UtilizationPct are left at whatever the caller already has;
// this backend only contributes reachability, not capacity.
func (s *Shark) CheckHealth(ctx context.Context, node placement.Node) (placement.Node, error) {
	ctx, span := telemetry.StartSharkSpan(ctx, "health", node.ID)
	defer span.End()

	updated := node
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketFor(node.ID))})
	if err != nil {
		updated.Circuit = placement.CircuitOpen
		return updated, err
	}
	updated.Circuit = placement.CircuitClosed
	return updated, nil
}
