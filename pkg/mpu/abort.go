package mpu

import (
	"context"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
	"github.com/nimbusstore/gateway/pkg/object"
)

// AbortRequest is the parsed input to Abort.
type AbortRequest struct {
	Account  string
	UploadID string
	Subuser  bool
}

// Abort runs MPU-abort (§4.7): transitions the upload record to FINALIZING/ABORT and
// inserts a matching finalizing record, tolerating a repeat abort of the same upload.
func Abort(ctx context.Context, app *Application, req AbortRequest) error {
	ctx, span := telemetry.StartMPUSpan(ctx, "abort", req.UploadID)
	defer span.End()

	if req.Subuser {
		return gwerr.NewUnauthorized("subusers may not abort multipart uploads")
	}

	upload, etag, err := loadUpload(ctx, app, req.Account, req.UploadID)
	if err != nil {
		return err
	}

	switch {
	case upload.State == StateCreated:
		upload.State = StateFinalizing
		upload.FinalizingType = FinalizingAbort
		encoded, err := encodeUploadRecord(upload, uploadEtag())
		if err != nil {
			return err
		}
		if err := app.Metadata.Put(ctx, UploadKey(req.Account, req.UploadID), encoded, metadatastore.CondIfEtagEquals(etag)); err != nil {
			if gwerr.IsEtagMismatch(err) {
				return gwerr.NewConcurrentRequest(req.UploadID)
			}
			return err
		}
	case upload.FinalizingType == FinalizingAbort:
		// idempotent: already aborted.
	case upload.FinalizingType == FinalizingCommit:
		return gwerr.NewFinalizeConflict(req.UploadID)
	}

	targetKey := object.ObjectKey(req.Account, upload.TargetPath)
	finKey := FinalizingKey(req.UploadID, targetKey)
	finRec, err := encodeFinalizingRecord(FinalizingRecord{
		UploadID:       req.UploadID,
		FinalizingType: FinalizingAbort,
		Owner:          req.Account,
		TargetPath:     upload.TargetPath,
		ObjectID:       upload.ObjectID,
	}, uploadEtag())
	if err != nil {
		return err
	}

	if err := app.Metadata.Put(ctx, finKey, finRec, metadatastore.CondIfAbsent()); err != nil {
		if gwerr.Is(err, gwerr.Conflict) {
			existing, getErr := app.Metadata.Get(ctx, finKey)
			if getErr != nil {
				return getErr
			}
			prior, decErr := decodeFinalizingRecord(existing)
			if decErr != nil {
				return decErr
			}
			if prior.FinalizingType == FinalizingAbort {
				return nil
			}
			return gwerr.NewFinalizeConflict(req.UploadID)
		}
		return err
	}

	logger.DebugCtx(ctx, "mpu abort", logger.UploadID(req.UploadID), logger.Account(req.Account))
	return nil
}
