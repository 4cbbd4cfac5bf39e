package mpu

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
	"github.com/nimbusstore/gateway/pkg/object"
)

// emptyCommitDigest is the MD5-of-nothing, base64-encoded: the constant digest a
// zero-byte commit uses in place of invoking the finalize RPC.
const emptyCommitDigest = "1B2M2Y8AsgTpgAmY7PhCfg=="

// CommitRequest is the parsed input to Commit.
type CommitRequest struct {
	Account  string
	UploadID string
	// Parts lists the client-supplied etag for each uploaded part, in order.
	Parts []string
	// ClientDigest, if non-empty, is the client-supplied content hash to verify
	// against the committed object's digest.
	ClientDigest string
}

// CommitResult describes the outcome of a successful Commit.
type CommitResult struct {
	Record object.ObjectRecord
}

// Commit runs MPU-commit (§4.7): validates the submitted part list, transitions the
// upload to FINALIZING/COMMIT, invokes the finalize RPC across every frozen replica,
// and atomically inserts the finalizing and object records on the target's shard.
func Commit(ctx context.Context, app *Application, req CommitRequest) (CommitResult, error) {
	ctx, span := telemetry.StartMPUSpan(ctx, "commit", req.UploadID)
	defer span.End()

	if len(req.Parts) > maxParts {
		return CommitResult{}, gwerr.NewBadRequest("too many parts")
	}
	partsDigest := partsDigestOf(req.Parts)

	upload, etag, err := loadUpload(ctx, app, req.Account, req.UploadID)
	if err != nil {
		return CommitResult{}, err
	}

	switch {
	case upload.State == StateFinalizing && upload.FinalizingType == FinalizingAbort:
		return CommitResult{}, gwerr.NewStateError(req.UploadID, "upload already aborted")
	case upload.State == StateFinalizing && upload.FinalizingType == FinalizingCommit:
		if upload.PartsDigest != partsDigest {
			return CommitResult{}, gwerr.NewStateError(req.UploadID, "commit already in progress with a different part set")
		}
		// idempotent retry of an in-flight commit with the same parts digest: fall
		// through and let the batch insert below resolve to the prior finalizing
		// record via its if-absent conflict check.
	case upload.State == StateCreated:
		// proceed
	}

	totalSize, err := validateParts(ctx, app, upload, req.Parts)
	if err != nil {
		return CommitResult{}, err
	}

	if upload.State == StateCreated {
		upload.State = StateFinalizing
		upload.FinalizingType = FinalizingCommit
		upload.PartsDigest = partsDigest
		encoded, err := encodeUploadRecord(upload, uploadEtag())
		if err != nil {
			return CommitResult{}, err
		}
		if err := app.Metadata.Put(ctx, UploadKey(req.Account, req.UploadID), encoded, metadatastore.CondIfEtagEquals(etag)); err != nil {
			if gwerr.IsEtagMismatch(err) {
				return CommitResult{}, gwerr.NewConcurrentRequest(req.UploadID)
			}
			return CommitResult{}, err
		}
	}

	digest, err := finalizeReplicas(ctx, app, req.Account, req.UploadID, upload, req.Parts, totalSize)
	if err != nil {
		return CommitResult{}, err
	}

	if req.ClientDigest != "" && req.ClientDigest != digest {
		return CommitResult{}, gwerr.NewChecksumMismatch(req.ClientDigest, digest)
	}

	rec := object.ObjectRecord{
		Path:          upload.TargetPath,
		Etag:          uploadEtag(),
		ObjectID:      upload.ObjectID,
		ContentLength: totalSize,
		ContentHash:   digest,
		Headers:       upload.Headers,
		ReplicaSet:    upload.ReplicaSet,
		Owner:         req.Account,
		CreatedAtMs:   nowMillisMPU(),
		ModifiedAtMs:  nowMillisMPU(),
	}
	objectKey := object.ObjectKey(req.Account, upload.TargetPath)
	objectRecordBytes, err := object.EncodeObjectRecord(rec, rec.Etag)
	if err != nil {
		return CommitResult{}, err
	}

	finKey := FinalizingKey(req.UploadID, objectKey)
	finRecBytes, err := encodeFinalizingRecord(FinalizingRecord{
		UploadID:       req.UploadID,
		FinalizingType: FinalizingCommit,
		Owner:          req.Account,
		TargetPath:     upload.TargetPath,
		ObjectID:       upload.ObjectID,
		ContentHash:    digest,
	}, uploadEtag())
	if err != nil {
		return CommitResult{}, err
	}

	batchErr := app.Metadata.Batch(ctx, []metadatastore.Op{
		{Kind: metadatastore.OpPut, Key: finKey, Record: finRecBytes, Condition: metadatastore.CondIfAbsent()},
		{Kind: metadatastore.OpPut, Key: objectKey, Record: objectRecordBytes, Condition: metadatastore.Cond()},
	})
	if batchErr != nil {
		if gwerr.Is(batchErr, gwerr.Conflict) {
			// already committed by a concurrent, identical request: idempotent success.
			existing, getErr := app.Metadata.Get(ctx, objectKey)
			if getErr != nil {
				return CommitResult{}, getErr
			}
			existingRec, decErr := object.DecodeObjectRecord(existing)
			if decErr != nil {
				return CommitResult{}, decErr
			}
			return CommitResult{Record: existingRec}, nil
		}
		return CommitResult{}, batchErr
	}

	logger.DebugCtx(ctx, "mpu commit", logger.UploadID(req.UploadID), logger.Account(req.Account), logger.Size(totalSize))
	return CommitResult{Record: rec}, nil
}

func partsDigestOf(parts []string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "")))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// validateParts loads each referenced part record and enforces the commit-time
// invariants: existence, matching client-supplied etag, minimum size for every part
// but the last, and an optional declared-size match.
func validateParts(ctx context.Context, app *Application, upload UploadRecord, parts []string) (int64, error) {
	var total int64
	for i, clientEtag := range parts {
		key := PartKey(upload.UploadPath, i)
		rec, err := app.Metadata.Get(ctx, key)
		if err != nil {
			if gwerr.IsNotFound(err) {
				return 0, gwerr.NewBadRequest("missing part")
			}
			return 0, err
		}
		if rec.Etag != clientEtag {
			return 0, gwerr.NewBadRequest("part etag mismatch")
		}
		part, err := decodePartRecord(rec)
		if err != nil {
			return 0, err
		}
		if i != len(parts)-1 && part.ContentLength < minPartSize {
			return 0, gwerr.NewBadRequest("part below minimum size")
		}
		total += part.ContentLength
	}
	if upload.HasDeclaredSize && total != upload.DeclaredSize {
		return 0, gwerr.NewBadRequest("sum of part sizes does not match declared size")
	}
	return total, nil
}

// finalizeReplicas invokes the storage-node finalize RPC in parallel across every
// replica in the upload's frozen set, requiring unanimous agreement on the resulting
// content digest (§4.8). Zero-byte commits skip the RPC entirely.
func finalizeReplicas(ctx context.Context, app *Application, account, uploadID string, upload UploadRecord, parts []string, totalSize int64) (string, error) {
	if totalSize == 0 {
		return emptyCommitDigest, nil
	}

	candidate, err := resolveReplicaSet(app.View, upload.ReplicaSet)
	if err != nil {
		return "", err
	}
	if len(candidate) == 0 {
		return "", gwerr.NewSharksExhausted(0)
	}

	digests := make([]string, len(candidate))
	g, gctx := errgroup.WithContext(ctx)
	for i, node := range candidate {
		i, node := i, node
		g.Go(func() error {
			d, err := app.Finalize.Finalize(gctx, node, uploadID, account, upload.ObjectID, totalSize, parts)
			if err != nil {
				return err
			}
			digests[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", gwerr.Wrap(gwerr.SharksExhausted, "mpu: finalize RPC", err)
	}

	for _, d := range digests[1:] {
		if d != digests[0] {
			return "", gwerr.NewInternal("finalize RPC returned disagreeing digests")
		}
	}
	return digests[0], nil
}
