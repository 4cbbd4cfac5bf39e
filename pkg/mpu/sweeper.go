package mpu

import (
	"context"
	"strings"
	"time"

	"github.com/nimbusstore/gateway/internal/logger"
)

// sweepScanLimit bounds a single sweep pass, mirroring the bounded-scan convention
// metadatastore.Store.CountPrefix already uses in pkg/object.
const sweepScanLimit = 10_000

// Sweeper periodically aborts stale CREATED uploads with no corresponding finalizing
// record (§4.9), standing in for the external garbage collector the core spec assumes
// exists. It never touches shark bytes; reclaiming orphaned replica data stays out of
// scope, same as a client-initiated abort.
type Sweeper struct {
	app      *Application
	maxAge   time.Duration
	interval time.Duration
}

// NewSweeper builds a Sweeper that scans for uploads older than maxAge, rechecking
// every interval.
func NewSweeper(app *Application, maxAge, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{app: app, maxAge: maxAge, interval: interval}
}

// Run blocks, sweeping on a ticker until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				logger.WarnCtx(ctx, "mpu sweeper: sweep pass failed", logger.Err(err))
			}
		}
	}
}

// sweepOnce runs a single scan-and-abort pass, returning the first scan error
// encountered; individual abort failures are logged and do not halt the pass.
func (s *Sweeper) sweepOnce(ctx context.Context) error {
	matches, err := s.app.Metadata.ScanPrefix(ctx, "uploads/", sweepScanLimit)
	if err != nil {
		return err
	}

	cutoff := nowMillisMPU() - s.maxAge.Milliseconds()
	swept := 0
	for _, kv := range matches {
		account, uploadID, ok := parseUploadKey(kv.Key)
		if !ok {
			continue
		}
		upload, err := decodeUploadRecord(kv.Record)
		if err != nil {
			logger.WarnCtx(ctx, "mpu sweeper: corrupt upload record", logger.UploadID(uploadID), logger.Err(err))
			continue
		}
		if upload.State != StateCreated || upload.CreatedAtMs > cutoff {
			continue
		}

		if err := Abort(ctx, s.app, AbortRequest{Account: account, UploadID: uploadID}); err != nil {
			logger.WarnCtx(ctx, "mpu sweeper: abort failed", logger.UploadID(uploadID), logger.Err(err))
			continue
		}
		swept++
	}
	if swept > 0 {
		logger.InfoCtx(ctx, "mpu sweeper: swept stale uploads", logger.Count(int64(swept)))
	}
	return nil
}

// parseUploadKey recognizes an UploadKey("account", "id") address ("uploads/<account>/<id>",
// exactly two slashes) as distinct from a part key ("uploads/<account>/<prefix>/<id>/<n>"),
// which ScanPrefix("uploads/", ...) also matches.
func parseUploadKey(key string) (account, uploadID string, ok bool) {
	const prefix = "uploads/"
	if !strings.HasPrefix(key, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(key, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
