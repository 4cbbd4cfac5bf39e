package mpu

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusstore/gateway/pkg/gwerr"
)

func nowMillisMPU() int64 {
	return time.Now().UnixMilli()
}

// uploadEtag mints a fresh opaque etag for an upload or finalizing record write.
func uploadEtag() string {
	return uuid.NewString()
}

// loadUpload fetches the upload record for uploadID, translating a metadata-tier
// miss into the upload-specific ResourceNotFound message.
func loadUpload(ctx context.Context, app *Application, account, uploadID string) (UploadRecord, string, error) {
	key := UploadKey(account, uploadID)
	rec, err := app.Metadata.Get(ctx, key)
	if err != nil {
		if gwerr.IsNotFound(err) {
			return UploadRecord{}, "", gwerr.NewResourceNotFound(uploadID)
		}
		return UploadRecord{}, "", err
	}
	upload, err := decodeUploadRecord(rec)
	if err != nil {
		return UploadRecord{}, "", err
	}
	return upload, rec.Etag, nil
}
