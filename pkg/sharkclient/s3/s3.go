// Package s3 is a concrete shark backend that treats each storage node as an
// S3 bucket, reached via aws-sdk-go-v2. It is useful for running the gateway
// against MinIO or real S3 in development and integration tests without a real
// shark fleet, and satisfies the same interfaces pkg/sharkclient's HTTP client
// does (placement.HealthChecker, fanout.ReplicaWriter, object.ReplicaReader,
// mpu.PartWriter, mpu.FinalizeClient), grounded on the teacher's
// S3ContentStore construction (pkg/store/content/s3/s3.go).
package s3

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config configures the S3-backed shark client.
type Config struct {
	// Endpoint overrides the S3 endpoint (set for MinIO/localstack; empty uses AWS).
	Endpoint string
	Region   string

	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle is required by most S3-compatible servers that aren't AWS itself.
	ForcePathStyle bool

	// BucketPrefix names the bucket backing each shark: bucket = BucketPrefix + "-" + node.ID.
	// One bucket per shark mirrors the real fleet's one-node-one-failure-domain model.
	BucketPrefix string

	// KeyPrefix namespaces every object key written under a shark's bucket.
	KeyPrefix string

	// PartSize bounds how much of a streamed write is buffered before an S3
	// UploadPart call is issued. Must be at least 5 MiB, S3's own minimum.
	PartSize int64
}

const minPartSize = 5 * 1024 * 1024

// NewS3ClientFromConfig builds an aws-sdk-go-v2 S3 client from static
// credentials, grounded directly on the teacher's NewS3ClientFromConfig.
func NewS3ClientFromConfig(ctx context.Context, cfg Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("sharkclient/s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return client, nil
}

// partRef locates the bytes a prior Open/Write/Close cycle wrote, keyed by the
// content digest that cycle returned. Finalize uses it to assemble the parts
// named in a commit's part list without re-reading them through the gateway.
type partRef struct {
	bucket, key string
}

// Shark is an S3-backed implementation of the shark client interfaces. Unlike
// pkg/sharkclient.Client it talks to S3 directly rather than a shark's own
// HTTP API, so a node's BaseURL is unused; placement.Node.ID alone selects the
// bucket.
type Shark struct {
	client *s3.Client
	cfg    Config

	mu      sync.Mutex
	uploads map[string]*multipartUpload

	partsMu sync.Mutex
	parts   map[string]partRef
}

// NewShark wraps an S3 client for use as a shark backend.
func NewShark(client *s3.Client, cfg Config) *Shark {
	if cfg.PartSize < minPartSize {
		cfg.PartSize = minPartSize
	}
	return &Shark{
		client:  client,
		cfg:     cfg,
		uploads: make(map[string]*multipartUpload),
		parts:   make(map[string]partRef),
	}
}

func (s *Shark) registerPart(digest string, ref partRef) {
	s.partsMu.Lock()
	s.parts[digest] = ref
	s.partsMu.Unlock()
}

func (s *Shark) lookupPart(digest string) (partRef, bool) {
	s.partsMu.Lock()
	defer s.partsMu.Unlock()
	ref, ok := s.parts[digest]
	return ref, ok
}

func (s *Shark) bucketFor(sharkID string) string {
	return s.cfg.BucketPrefix + "-" + sharkID
}

func (s *Shark) keyFor(objectID string) string {
	return path.Join(s.cfg.KeyPrefix, objectID)
}

// VerifyBucket confirms a shark's backing bucket exists and is reachable,
// mirroring the teacher's HeadBucket startup check.
func (s *Shark) VerifyBucket(ctx context.Context, sharkID string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketFor(sharkID))})
	if err != nil {
		return fmt.Errorf("sharkclient/s3: bucket for shark %s unreachable: %w", sharkID, err)
	}
	return nil
}
