package mpu

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusstore/gateway/pkg/metadatastore"
)

func TestSweeperAbortsStaleCreatedUploads(t *testing.T) {
	app := testApp(t, "")
	ctx := context.Background()

	created, err := Create(ctx, app, CreateRequest{Account: "acct", TargetPath: "f", DeclaredSize: 1, HasDeclaredSize: true})
	require.NoError(t, err)

	upload, etag, err := loadUpload(ctx, app, "acct", created.UploadID)
	require.NoError(t, err)
	upload.CreatedAtMs -= (2 * time.Hour).Milliseconds()
	encoded, err := encodeUploadRecord(upload, etag)
	require.NoError(t, err)
	require.NoError(t, app.Metadata.Put(ctx, UploadKey("acct", created.UploadID), encoded, metadatastore.CondIfEtagEquals(etag)))

	sweeper := NewSweeper(app, time.Hour, time.Minute)
	require.NoError(t, sweeper.sweepOnce(ctx))

	final, _, err := loadUpload(ctx, app, "acct", created.UploadID)
	require.NoError(t, err)
	assert.Equal(t, StateFinalizing, final.State)
	assert.Equal(t, FinalizingAbort, final.FinalizingType)
}

func TestSweeperIgnoresFreshUploads(t *testing.T) {
	app := testApp(t, "")
	ctx := context.Background()

	created, err := Create(ctx, app, CreateRequest{Account: "acct", TargetPath: "f", DeclaredSize: 1, HasDeclaredSize: true})
	require.NoError(t, err)

	sweeper := NewSweeper(app, time.Hour, time.Minute)
	require.NoError(t, sweeper.sweepOnce(ctx))

	final, _, err := loadUpload(ctx, app, "acct", created.UploadID)
	require.NoError(t, err)
	assert.Equal(t, StateCreated, final.State)
}

func TestParseUploadKeyRejectsPartKeys(t *testing.T) {
	account, id, ok := parseUploadKey("uploads/acct/abc123")
	assert.True(t, ok)
	assert.Equal(t, "acct", account)
	assert.Equal(t, "abc123", id)

	_, _, ok = parseUploadKey("uploads/acct/a/abc123/0")
	assert.False(t, ok)
}
