package mpu

import (
	"context"

	"github.com/nimbusstore/gateway/internal/telemetry"
)

// StateRequest is the parsed input to GetState.
type StateRequest struct {
	Account  string
	UploadID string
}

// StateResult reports an upload's current lifecycle state (§6 "GET .../state").
type StateResult struct {
	UploadID       string
	State          State
	FinalizingType FinalizingType
	TargetPath     string
	// UploadPath is the upload's true sharded path, as stored on the record at
	// create time. The legacy-id redirect route uses this directly instead of
	// guessing a prefix directory length, since the record already knows its own path.
	UploadPath  string
	PartsDigest string
}

// GetState runs MPU-get-state: returns the upload record's lifecycle state
// without mutating it, so pollers can distinguish an in-flight commit/abort
// from a still-open upload.
func GetState(ctx context.Context, app *Application, req StateRequest) (StateResult, error) {
	ctx, span := telemetry.StartMPUSpan(ctx, "get-state", req.UploadID)
	defer span.End()

	upload, _, err := loadUpload(ctx, app, req.Account, req.UploadID)
	if err != nil {
		return StateResult{}, err
	}

	return StateResult{
		UploadID:       upload.UploadID,
		State:          upload.State,
		FinalizingType: upload.FinalizingType,
		TargetPath:     upload.TargetPath,
		UploadPath:     upload.UploadPath,
		PartsDigest:    upload.PartsDigest,
	}, nil
}
