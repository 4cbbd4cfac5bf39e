package s3

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// Finalize assembles the parts named by digest, in order, into the canonical
// object key using S3's own server-side UploadPartCopy, so a multi-gibibyte
// object never has to round-trip through the gateway to be assembled.
//
// The digest this returns is not a hash of the assembled bytes: S3 doesn't
// expose one for a copy-assembled object cheaply, so it is derived from the
// ordered part list instead. Every replica of a commit is called with the
// same parts slice, so every replica agrees on the same digest, which is all
// the commit coordinator actually requires.
func (s *Shark) Finalize(ctx context.Context, node placement.Node, uploadID, account, objectID string, nbytes int64, parts []string) (string, error) {
	ctx, span := telemetry.StartSharkSpan(ctx, "finalize", node.ID, telemetry.ContentID(objectID), telemetry.Size(nbytes))
	defer span.End()

	if len(parts) == 0 {
		return "", fmt.Errorf("sharkclient/s3: finalize with no parts")
	}

	bucket := s.bucketFor(node.ID)
	canonicalKey := s.keyFor(objectID)

	refs := make([]partRef, len(parts))
	for i, digest := range parts {
		ref, ok := s.lookupPart(digest)
		if !ok {
			return "", fmt.Errorf("sharkclient/s3: finalize: unknown part digest %q", digest)
		}
		refs[i] = ref
	}

	if len(parts) == 1 {
		if _, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(bucket),
			Key:        aws.String(canonicalKey),
			CopySource: aws.String(copySource(refs[0].bucket, refs[0].key)),
		}); err != nil {
			return "", fmt.Errorf("sharkclient/s3: finalize: copy single part: %w", err)
		}
		return partsDigest(parts), nil
	}

	created, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(canonicalKey),
	})
	if err != nil {
		return "", fmt.Errorf("sharkclient/s3: finalize: create multipart upload: %w", err)
	}

	completed := make([]types.CompletedPart, 0, len(refs))
	for i, ref := range refs {
		partNumber := int32(i + 1)
		res, err := s.client.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
			Bucket:     aws.String(bucket),
			Key:        aws.String(canonicalKey),
			UploadId:   created.UploadId,
			PartNumber: aws.Int32(partNumber),
			CopySource: aws.String(copySource(ref.bucket, ref.key)),
		})
		if err != nil {
			_, _ = s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
				Bucket: aws.String(bucket), Key: aws.String(canonicalKey), UploadId: created.UploadId,
			})
			return "", fmt.Errorf("sharkclient/s3: finalize: copy part %d: %w", partNumber, err)
		}
		completed = append(completed, types.CompletedPart{
			ETag:       res.CopyPartResult.ETag,
			PartNumber: aws.Int32(partNumber),
		})
	}

	sort.Slice(completed, func(i, j int) bool { return *completed[i].PartNumber < *completed[j].PartNumber })

	if _, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(canonicalKey),
		UploadId:        created.UploadId,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	}); err != nil {
		return "", fmt.Errorf("sharkclient/s3: finalize: complete multipart upload: %w", err)
	}

	return partsDigest(parts), nil
}

func partsDigest(parts []string) string {
	h := md5.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
