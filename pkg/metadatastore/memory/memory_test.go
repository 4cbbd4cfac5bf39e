package memory

import (
	"context"
	"testing"

	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, gwerr.IsNotFound(err))
}

func TestPutThenGetRoundTrips(t *testing.T) {
	s := New()
	rec := metadatastore.Record{Bytes: []byte("hello"), Etag: "v1"}
	require.NoError(t, s.Put(context.Background(), "k1", rec, metadatastore.Cond()))

	got, err := s.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestPutIfAbsentRejectsExisting(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k1", metadatastore.Record{Etag: "v1"}, metadatastore.CondIfAbsent()))

	err := s.Put(ctx, "k1", metadatastore.Record{Etag: "v2"}, metadatastore.CondIfAbsent())
	require.Error(t, err)
	assert.Equal(t, gwerr.Conflict, gwerr.CodeOf(err))
}

func TestPutIfEtagEqualsEnforcesMatch(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k1", metadatastore.Record{Etag: "v1"}, metadatastore.Cond()))

	err := s.Put(ctx, "k1", metadatastore.Record{Etag: "v2"}, metadatastore.CondIfEtagEquals("wrong"))
	require.Error(t, err)
	assert.True(t, gwerr.IsEtagMismatch(err))

	require.NoError(t, s.Put(ctx, "k1", metadatastore.Record{Etag: "v2"}, metadatastore.CondIfEtagEquals("v1")))
}

func TestDelRequiresExisting(t *testing.T) {
	s := New()
	err := s.Del(context.Background(), "missing", metadatastore.Cond())
	require.Error(t, err)
	assert.True(t, gwerr.IsNotFound(err))
}

func TestBatchRejectsMultiShard(t *testing.T) {
	s := New()
	ops := []metadatastore.Op{
		{Kind: metadatastore.OpPut, Key: "a", Record: metadatastore.Record{Etag: "1"}},
		{Kind: metadatastore.OpPut, Key: "totally-different-key-unlikely-same-shard", Record: metadatastore.Record{Etag: "1"}},
	}
	// Only assert the rejection path when the two keys genuinely land on different
	// shards; fnv hashing makes collisions possible but unlikely for these inputs.
	if shard1 := metadatastore.ShardOf(ops[0].Key); shard1 == metadatastore.ShardOf(ops[1].Key) {
		t.Skip("keys happened to hash to the same shard")
	}
	err := s.Batch(context.Background(), ops)
	require.Error(t, err)
}

func TestBatchAppliesAllOrNothing(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Find two keys that hash to the same shard.
	keyA := "batch-a"
	keyB := "batch-b"
	shardA := metadatastore.ShardOf(keyA)
	for i := 0; metadatastore.ShardOf(keyB) != shardA; i++ {
		keyB = keyB + "x"
		if i > 1000 {
			t.Fatal("could not find same-shard key pair")
		}
	}

	require.NoError(t, s.Put(ctx, keyA, metadatastore.Record{Etag: "v1"}, metadatastore.Cond()))

	ops := []metadatastore.Op{
		{Kind: metadatastore.OpPut, Key: keyA, Record: metadatastore.Record{Etag: "v2"}, Condition: metadatastore.CondIfEtagEquals("v1")},
		{Kind: metadatastore.OpPut, Key: keyB, Record: metadatastore.Record{Etag: "v1"}, Condition: metadatastore.CondIfAbsent()},
	}
	require.NoError(t, s.Batch(ctx, ops))

	got, err := s.Get(ctx, keyB)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Etag)
}

func TestCountPrefixCountsAndCaps(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, k := range []string{"objects/acct/dir/a", "objects/acct/dir/b", "objects/acct/dir/c", "objects/acct/other"} {
		require.NoError(t, s.Put(ctx, k, metadatastore.Record{Etag: "v1"}, metadatastore.Cond()))
	}

	count, err := s.CountPrefix(ctx, "objects/acct/dir/", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	capped, err := s.CountPrefix(ctx, "objects/acct/dir/", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, capped)
}

func TestHealthcheckAndClose(t *testing.T) {
	s := New()
	assert.NoError(t, s.Healthcheck(context.Background()))
	assert.NoError(t, s.Close())
}
