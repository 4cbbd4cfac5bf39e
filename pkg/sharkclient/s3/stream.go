package s3

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"hash"
	"net/url"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/fanout"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// multipartUpload tracks one in-flight S3 multipart upload, grounded on the
// teacher's own multipartUpload session struct (pkg/store/content/s3/s3_multipart.go).
type multipartUpload struct {
	bucket, key, uploadID string

	mu         sync.Mutex
	parts      []types.CompletedPart
	partNumber int32
}

// Open begins a streamed write to node's bucket, landing bytes via S3's native
// multipart upload so a large MPU part (or whole object) never needs buffering
// in full. Every Open call gets its own S3 key under objectID's prefix, since a
// shared objectID may receive many independent writes (one per MPU part); the
// finalize RPC (finalize.go) is what assembles named part digests, in commit
// order, into the canonical object key via server-side UploadPartCopy.
//
// Close also promotes its own write directly onto the canonical key. That is
// wasted work for an MPU part (finalize.go overwrites the canonical key again,
// correctly, once all parts are known) but is what makes a solo whole-object
// write (pkg/object's PUT path, which never calls Finalize) visible at
// objectID without a separate commit step.
func (s *Shark) Open(ctx context.Context, node placement.Node, objectID string, size int64) (fanout.ReplicaStream, error) {
	ctx, span := telemetry.StartSharkSpan(ctx, "upload", node.ID, telemetry.ContentID(objectID), telemetry.Size(size))
	defer span.End()

	bucket := s.bucketFor(node.ID)
	key := s.keyFor(objectID) + "/writes/" + uuid.NewString()

	created, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("sharkclient/s3: create multipart upload: %w", err)
	}

	up := &multipartUpload{bucket: bucket, key: key, uploadID: *created.UploadId}
	s.mu.Lock()
	s.uploads[up.uploadID] = up
	s.mu.Unlock()

	return &s3Stream{
		ctx:          ctx,
		client:       s.client,
		shark:        s,
		upload:       up,
		canonicalKey: s.keyFor(objectID),
		partSize:     s.cfg.PartSize,
		digest:       md5.New(),
	}, nil
}

// s3Stream buffers writes up to partSize before issuing an UploadPart call,
// computing a local running MD5 since a multipart object's own S3 ETag is not
// a plain content digest.
type s3Stream struct {
	ctx          context.Context
	client       *s3.Client
	shark        *Shark
	upload       *multipartUpload
	canonicalKey string
	partSize     int64

	buf     []byte
	digest  hash.Hash
	written int64
}

func (s *s3Stream) Write(p []byte) (int, error) {
	s.digest.Write(p)
	s.written += int64(len(p))
	s.buf = append(s.buf, p...)

	for int64(len(s.buf)) >= s.partSize {
		chunk := s.buf[:s.partSize]
		if err := s.flush(chunk); err != nil {
			return 0, err
		}
		s.buf = append([]byte(nil), s.buf[s.partSize:]...)
	}
	return len(p), nil
}

func (s *s3Stream) flush(chunk []byte) error {
	s.upload.mu.Lock()
	s.upload.partNumber++
	partNumber := s.upload.partNumber
	s.upload.mu.Unlock()

	result, err := s.client.UploadPart(s.ctx, &s3.UploadPartInput{
		Bucket:     aws.String(s.upload.bucket),
		Key:        aws.String(s.upload.key),
		UploadId:   aws.String(s.upload.uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(chunk),
	})
	if err != nil {
		return fmt.Errorf("sharkclient/s3: upload part %d: %w", partNumber, err)
	}

	s.upload.mu.Lock()
	s.upload.parts = append(s.upload.parts, types.CompletedPart{
		ETag:       result.ETag,
		PartNumber: aws.Int32(partNumber),
	})
	s.upload.mu.Unlock()
	return nil
}

// Close flushes any buffered tail, completes the multipart upload, and returns
// the locally-computed digest of everything written.
func (s *s3Stream) Close() (string, error) {
	if len(s.buf) > 0 {
		if err := s.flush(s.buf); err != nil {
			return "", err
		}
		s.buf = nil
	}

	s.upload.mu.Lock()
	parts := make([]types.CompletedPart, len(s.upload.parts))
	copy(parts, s.upload.parts)
	s.upload.mu.Unlock()

	sort.Slice(parts, func(i, j int) bool { return *parts[i].PartNumber < *parts[j].PartNumber })

	_, err := s.client.CompleteMultipartUpload(s.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.upload.bucket),
		Key:      aws.String(s.upload.key),
		UploadId: aws.String(s.upload.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		return "", fmt.Errorf("sharkclient/s3: complete multipart upload: %w", err)
	}

	digest := base64.StdEncoding.EncodeToString(s.digest.Sum(nil))
	s.shark.registerPart(digest, partRef{bucket: s.upload.bucket, key: s.upload.key})

	_, err = s.client.CopyObject(s.ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.upload.bucket),
		Key:        aws.String(s.canonicalKey),
		CopySource: aws.String(copySource(s.upload.bucket, s.upload.key)),
	})
	if err != nil {
		return "", fmt.Errorf("sharkclient/s3: promote write to canonical key: %w", err)
	}

	return digest, nil
}

// copySource builds an S3 CopySource value. S3 URL-decodes the whole header
// before splitting on the first '/', so escaping the entire bucket/key string
// (the slash between them included) round-trips correctly.
func copySource(bucket, key string) string {
	return url.QueryEscape(bucket + "/" + key)
}

// Abort cancels the in-progress multipart upload, ignoring a not-found result
// since abort is required to be idempotent.
func (s *s3Stream) Abort() {
	_, _ = s.client.AbortMultipartUpload(s.ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.upload.bucket),
		Key:      aws.String(s.upload.key),
		UploadId: aws.String(s.upload.uploadID),
	})
}
