package mpu

import (
	"context"
	"io"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/fanout"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// UploadPartRequest is the parsed input to UploadPart.
type UploadPartRequest struct {
	Account  string
	UploadID string
	Index    int
	Body     io.Reader
	// ContentLength is the declared part size; required since parts are streamed to
	// the frozen replica set rather than buffered through independent placement sizing.
	ContentLength int64
	ClientDigest  string
}

// UploadPartResult describes the outcome of a successful UploadPart.
type UploadPartResult struct {
	Etag          string
	ContentLength int64
}

// UploadPart runs MPU-upload-part (§4.7): validates the part index, confirms the
// upload is still accepting parts, and streams the part body to the replica set
// frozen at MPU-create (no independent placement decision per part).
func UploadPart(ctx context.Context, app *Application, req UploadPartRequest) (UploadPartResult, error) {
	ctx, span := telemetry.StartMPUSpan(ctx, "upload_part", req.UploadID, telemetry.PartNumber(req.Index))
	defer span.End()

	if req.Index < 0 || req.Index >= maxParts {
		return UploadPartResult{}, gwerr.NewBadRequest("part index out of range")
	}

	upload, _, err := loadUpload(ctx, app, req.Account, req.UploadID)
	if err != nil {
		return UploadPartResult{}, err
	}
	if upload.State != StateCreated {
		return UploadPartResult{}, gwerr.NewStateError(req.UploadID, "upload is not accepting parts")
	}

	candidate, err := resolveReplicaSet(app.View, upload.ReplicaSet)
	if err != nil {
		return UploadPartResult{}, err
	}

	streamed, err := fanout.Stream(ctx, app.Parts, []placement.ReplicaSet{candidate}, req.Body, upload.ObjectID, req.ContentLength, req.ClientDigest, app.FanoutMetrics)
	if err != nil {
		return UploadPartResult{}, err
	}

	partKey := PartKey(upload.UploadPath, req.Index)
	encoded, err := encodePartRecord(PartRecord{
		UploadID:      req.UploadID,
		Index:         req.Index,
		ContentLength: streamed.Written,
	}, streamed.Digest)
	if err != nil {
		return UploadPartResult{}, err
	}

	if err := app.Metadata.Put(ctx, partKey, encoded, metadatastore.CondIfAbsent()); err != nil {
		if gwerr.Is(err, gwerr.Conflict) {
			// Part records are immutable once written (§3); a retried upload of the
			// same index is treated as idempotent, returning the prior part's etag.
			existing, getErr := app.Metadata.Get(ctx, partKey)
			if getErr != nil {
				return UploadPartResult{}, getErr
			}
			prior, decErr := decodePartRecord(existing)
			if decErr != nil {
				return UploadPartResult{}, decErr
			}
			return UploadPartResult{Etag: existing.Etag, ContentLength: prior.ContentLength}, nil
		}
		return UploadPartResult{}, err
	}

	logger.DebugCtx(ctx, "mpu upload part", logger.UploadID(req.UploadID), logger.PartNumber(req.Index), logger.Size(streamed.Written))
	return UploadPartResult{Etag: streamed.Digest, ContentLength: streamed.Written}, nil
}

// resolveReplicaSet resolves an upload record's frozen replica ids against the live
// placement view, since the record stores only ids (not full node descriptors).
func resolveReplicaSet(view *placement.View, ids []string) (placement.ReplicaSet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	nodes := view.Snapshot()
	byID := make(map[string]placement.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	set := make(placement.ReplicaSet, 0, len(ids))
	for _, id := range ids {
		n, ok := byID[id]
		if !ok {
			return nil, gwerr.NewSharksExhausted(len(ids))
		}
		set = append(set, n)
	}
	return set, nil
}
