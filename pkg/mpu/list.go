package mpu

import (
	"context"

	"github.com/nimbusstore/gateway/internal/telemetry"
)

// ListRequest is the parsed input to ListUploads.
type ListRequest struct {
	Account string
	Limit   int
}

// ListUploads enumerates upload records for account, for operator tooling (the
// admin CLI's "uploads list" command). It reuses the same scan-and-filter
// approach as the sweeper: ScanPrefix over the uploads namespace, then
// parseUploadKey to discard the part-record keys the same prefix also matches.
func ListUploads(ctx context.Context, app *Application, req ListRequest) ([]StateResult, error) {
	ctx, span := telemetry.StartMPUSpan(ctx, "list-uploads", "")
	defer span.End()

	limit := req.Limit
	if limit <= 0 {
		limit = sweepScanLimit
	}

	matches, err := app.Metadata.ScanPrefix(ctx, UploadKey(req.Account, ""), limit)
	if err != nil {
		return nil, err
	}

	out := make([]StateResult, 0, len(matches))
	for _, kv := range matches {
		account, uploadID, ok := parseUploadKey(kv.Key)
		if !ok || account != req.Account {
			continue
		}
		upload, err := decodeUploadRecord(kv.Record)
		if err != nil {
			continue
		}
		out = append(out, StateResult{
			UploadID:       uploadID,
			State:          upload.State,
			FinalizingType: upload.FinalizingType,
			TargetPath:     upload.TargetPath,
			UploadPath:     upload.UploadPath,
			PartsDigest:    upload.PartsDigest,
		})
	}
	return out, nil
}
