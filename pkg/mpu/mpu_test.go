package mpu

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusstore/gateway/internal/bytesize"
	"github.com/nimbusstore/gateway/pkg/config"
	"github.com/nimbusstore/gateway/pkg/fanout"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore/memory"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// fakeStream mirrors fanout.Stream's own digest verification so test uploads succeed.
type fakeStream struct {
	buf bytes.Buffer
}

func (s *fakeStream) Write(p []byte) (int, error) { return s.buf.Write(p) }
func (s *fakeStream) Close() (string, error)       { return localDigest(s.buf.Bytes()), nil }
func (s *fakeStream) Abort()                       {}

func localDigest(b []byte) string {
	sum := md5.Sum(b)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type fakePartWriter struct{}

func (fakePartWriter) Open(ctx context.Context, node placement.Node, objectID string, size int64) (fanout.ReplicaStream, error) {
	return &fakeStream{}, nil
}

// fakeFinalizer always reports the digest the test computed for the concatenated
// part bytes, agreeing across every replica.
type fakeFinalizer struct {
	digest string
}

func (f fakeFinalizer) Finalize(ctx context.Context, node placement.Node, uploadID, account, objectID string, nbytes int64, parts []string) (string, error) {
	return f.digest, nil
}

func threeNodes() []placement.Node {
	return []placement.Node{
		{ID: "shark-1", Datacenter: "dc1", UtilizationPct: 10, LastHeartbeat: time.Now()},
		{ID: "shark-2", Datacenter: "dc2", UtilizationPct: 10, LastHeartbeat: time.Now()},
		{ID: "shark-3", Datacenter: "dc3", UtilizationPct: 10, LastHeartbeat: time.Now()},
	}
}

func testApp(t *testing.T, finalizeDigest string) *Application {
	t.Helper()
	view := placement.NewView(threeNodes(), nil, time.Minute, time.Hour)
	planner := placement.NewPlanner(view, placement.Config{
		MinCopies: 1, MaxCopies: 9, MaxUtilizationPct: 90, MaxOperatorUtilizationPct: 92,
	})
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DefaultMaxStreamingSize: bytesize.ByteSize(10 * 1024 * 1024),
			MaxUtilizationPct:       90,
			MaxObjectCopies:         3,
		},
		MultipartUpload: config.MultipartUploadConfig{PrefixDirLen: 1},
	}
	return &Application{
		Metadata: memory.New(),
		Planner:  planner,
		View:     view,
		Parts:    fakePartWriter{},
		Finalize: fakeFinalizer{digest: finalizeDigest},
		Config:   cfg,
	}
}

func TestCreateUploadPartsThenCommitRoundTrips(t *testing.T) {
	part0 := bytes.Repeat([]byte{'a'}, minPartSize)
	part1 := []byte("tail bytes")
	total := localDigest(append(append([]byte{}, part0...), part1...))

	app := testApp(t, total)
	ctx := context.Background()

	created, err := Create(ctx, app, CreateRequest{
		Account: "acct", TargetPath: "big.bin", Copies: 2,
		DeclaredSize: int64(len(part0) + len(part1)), HasDeclaredSize: true,
	})
	require.NoError(t, err)
	assert.Equal(t, StateCreated, created.Record.State)

	p0, err := UploadPart(ctx, app, UploadPartRequest{
		Account: "acct", UploadID: created.UploadID, Index: 0,
		Body: bytes.NewReader(part0), ContentLength: int64(len(part0)),
	})
	require.NoError(t, err)

	p1, err := UploadPart(ctx, app, UploadPartRequest{
		Account: "acct", UploadID: created.UploadID, Index: 1,
		Body: bytes.NewReader(part1), ContentLength: int64(len(part1)),
	})
	require.NoError(t, err)

	res, err := Commit(ctx, app, CommitRequest{
		Account: "acct", UploadID: created.UploadID, Parts: []string{p0.Etag, p1.Etag},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(part0)+len(part1)), res.Record.ContentLength)
	assert.Equal(t, total, res.Record.ContentHash)
}

func TestCreateForbidsSubuser(t *testing.T) {
	app := testApp(t, "")
	_, err := Create(context.Background(), app, CreateRequest{Account: "acct", TargetPath: "f", Subuser: true})
	require.Error(t, err)
	assert.Equal(t, gwerr.Unauthorized, gwerr.CodeOf(err))
}

func TestUploadPartAfterAbortIsStateError(t *testing.T) {
	app := testApp(t, "")
	ctx := context.Background()
	created, err := Create(ctx, app, CreateRequest{Account: "acct", TargetPath: "f", DeclaredSize: 1, HasDeclaredSize: true})
	require.NoError(t, err)

	require.NoError(t, Abort(ctx, app, AbortRequest{Account: "acct", UploadID: created.UploadID}))

	_, err = UploadPart(ctx, app, UploadPartRequest{
		Account: "acct", UploadID: created.UploadID, Index: 0,
		Body: bytes.NewReader([]byte("x")), ContentLength: 1,
	})
	require.Error(t, err)
	assert.Equal(t, gwerr.StateError, gwerr.CodeOf(err))
}

func TestAbortIsIdempotent(t *testing.T) {
	app := testApp(t, "")
	ctx := context.Background()
	created, err := Create(ctx, app, CreateRequest{Account: "acct", TargetPath: "f", DeclaredSize: 1, HasDeclaredSize: true})
	require.NoError(t, err)

	require.NoError(t, Abort(ctx, app, AbortRequest{Account: "acct", UploadID: created.UploadID}))
	require.NoError(t, Abort(ctx, app, AbortRequest{Account: "acct", UploadID: created.UploadID}))
}

func TestAbortAfterCommitIsFinalizeConflict(t *testing.T) {
	part := bytes.Repeat([]byte{'b'}, 1)
	digest := localDigest(part)
	app := testApp(t, digest)
	ctx := context.Background()

	created, err := Create(ctx, app, CreateRequest{Account: "acct", TargetPath: "f", DeclaredSize: 1, HasDeclaredSize: true})
	require.NoError(t, err)

	p0, err := UploadPart(ctx, app, UploadPartRequest{
		Account: "acct", UploadID: created.UploadID, Index: 0,
		Body: bytes.NewReader(part), ContentLength: 1,
	})
	require.NoError(t, err)

	_, err = Commit(ctx, app, CommitRequest{Account: "acct", UploadID: created.UploadID, Parts: []string{p0.Etag}})
	require.NoError(t, err)

	err = Abort(ctx, app, AbortRequest{Account: "acct", UploadID: created.UploadID})
	require.Error(t, err)
	assert.Equal(t, gwerr.FinalizeConflict, gwerr.CodeOf(err))
}

func TestCommitPartEtagMismatchRejected(t *testing.T) {
	app := testApp(t, "")
	ctx := context.Background()
	created, err := Create(ctx, app, CreateRequest{Account: "acct", TargetPath: "f", DeclaredSize: 1, HasDeclaredSize: true})
	require.NoError(t, err)

	_, err = UploadPart(ctx, app, UploadPartRequest{
		Account: "acct", UploadID: created.UploadID, Index: 0,
		Body: bytes.NewReader([]byte("x")), ContentLength: 1,
	})
	require.NoError(t, err)

	_, err = Commit(ctx, app, CommitRequest{Account: "acct", UploadID: created.UploadID, Parts: []string{`"wrong-etag"`}})
	require.Error(t, err)
	assert.Equal(t, gwerr.BadRequest, gwerr.CodeOf(err))
}

func TestCommitBelowMinPartSizeRejected(t *testing.T) {
	app := testApp(t, "")
	ctx := context.Background()
	created, err := Create(ctx, app, CreateRequest{
		Account: "acct", TargetPath: "f", DeclaredSize: int64(minPartSize + 1), HasDeclaredSize: true,
	})
	require.NoError(t, err)

	p0, err := UploadPart(ctx, app, UploadPartRequest{
		Account: "acct", UploadID: created.UploadID, Index: 0,
		Body: bytes.NewReader([]byte("too-small")), ContentLength: 9,
	})
	require.NoError(t, err)
	p1, err := UploadPart(ctx, app, UploadPartRequest{
		Account: "acct", UploadID: created.UploadID, Index: 1,
		Body: bytes.NewReader([]byte("x")), ContentLength: 1,
	})
	require.NoError(t, err)

	_, err = Commit(ctx, app, CommitRequest{Account: "acct", UploadID: created.UploadID, Parts: []string{p0.Etag, p1.Etag}})
	require.Error(t, err)
	assert.Equal(t, gwerr.BadRequest, gwerr.CodeOf(err))
}

func TestCommitZeroByteUploadSkipsFinalizeRPC(t *testing.T) {
	app := testApp(t, "unused")
	ctx := context.Background()
	created, err := Create(ctx, app, CreateRequest{Account: "acct", TargetPath: "empty.bin", DeclaredSize: 0, HasDeclaredSize: true})
	require.NoError(t, err)
	assert.Empty(t, created.Record.ReplicaSet)

	res, err := Commit(ctx, app, CommitRequest{Account: "acct", UploadID: created.UploadID, Parts: nil})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Record.ContentLength)
	assert.Equal(t, emptyCommitDigest, res.Record.ContentHash)
}
