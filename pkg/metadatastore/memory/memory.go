// Package memory is an in-process metadatastore.Store backed by a shard-striped set
// of mutex-guarded maps. Intended for tests and single-process demos, generalizing the
// teacher's single-mutex in-memory store into one mutex per logical shard so Batch
// operations on one shard don't serialize against unrelated keys on another.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
)

type shard struct {
	mu   sync.RWMutex
	data map[string]metadatastore.Record
}

// Store is an in-memory metadatastore.Store.
type Store struct {
	shards [metadatastore.ShardCount]*shard
}

// New constructs an empty in-memory store.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{data: make(map[string]metadatastore.Record)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	return s.shards[metadatastore.ShardOf(key)]
}

func (s *Store) Get(ctx context.Context, key string) (metadatastore.Record, error) {
	_, span := telemetry.StartMetadataSpan(ctx, "get", telemetry.StoreName("memory"))
	defer span.End()

	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.data[key]
	if !ok {
		return metadatastore.Record{}, gwerr.NewNotFound(key)
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, key string, record metadatastore.Record, cond metadatastore.Condition) error {
	_, span := telemetry.StartMetadataSpan(ctx, "put", telemetry.StoreName("memory"))
	defer span.End()

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return putLocked(sh, key, record, cond)
}

func putLocked(sh *shard, key string, record metadatastore.Record, cond metadatastore.Condition) error {
	existing, exists := sh.data[key]
	switch cond.Kind {
	case metadatastore.IfAbsent:
		if exists {
			return gwerr.NewConflict(key)
		}
	case metadatastore.IfEtagEquals:
		if !exists {
			return gwerr.NewNotFound(key)
		}
		if existing.Etag != cond.Etag {
			return gwerr.NewEtagMismatch(key)
		}
	}
	sh.data[key] = record
	return nil
}

func (s *Store) Del(ctx context.Context, key string, cond metadatastore.Condition) error {
	_, span := telemetry.StartMetadataSpan(ctx, "del", telemetry.StoreName("memory"))
	defer span.End()

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return delLocked(sh, key, cond)
}

func delLocked(sh *shard, key string, cond metadatastore.Condition) error {
	existing, exists := sh.data[key]
	if !exists {
		return gwerr.NewNotFound(key)
	}
	if cond.Kind == metadatastore.IfEtagEquals && existing.Etag != cond.Etag {
		return gwerr.NewEtagMismatch(key)
	}
	delete(sh.data, key)
	return nil
}

// Batch executes ops atomically with respect to other Batch/Get/Put/Del callers on the
// same shard. All ops must hash to the same shard.
func (s *Store) Batch(ctx context.Context, ops []metadatastore.Op) error {
	_, span := telemetry.StartMetadataSpan(ctx, "batch", telemetry.StoreName("memory"))
	defer span.End()

	keys := make([]string, len(ops))
	for i, op := range ops {
		keys[i] = op.Key
	}
	shardIdx, ok := metadatastore.SameShard(keys)
	if !ok {
		return gwerr.New(gwerr.Internal, "batch ops span multiple shards")
	}
	if len(ops) == 0 {
		return nil
	}
	sh := s.shards[shardIdx]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	// Validate every condition against the pre-batch state before mutating anything,
	// so a failing op never leaves a partial batch applied.
	for _, op := range ops {
		existing, exists := sh.data[op.Key]
		switch op.Condition.Kind {
		case metadatastore.IfAbsent:
			if op.Kind == metadatastore.OpPut && exists {
				return gwerr.NewConflict(op.Key)
			}
		case metadatastore.IfEtagEquals:
			if !exists {
				return gwerr.NewNotFound(op.Key)
			}
			if existing.Etag != op.Condition.Etag {
				return gwerr.NewEtagMismatch(op.Key)
			}
		}
	}

	for _, op := range ops {
		switch op.Kind {
		case metadatastore.OpPut:
			sh.data[op.Key] = op.Record
		case metadatastore.OpDel:
			delete(sh.data, op.Key)
		}
	}
	return nil
}

// CountPrefix scans every shard (prefixes give no shard locality guarantee here,
// unlike a single key) and returns the number of matching keys, capped at limit.
func (s *Store) CountPrefix(ctx context.Context, prefix string, limit int) (int, error) {
	_, span := telemetry.StartMetadataSpan(ctx, "count_prefix", telemetry.StoreName("memory"))
	defer span.End()

	count := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k := range sh.data {
			if strings.HasPrefix(k, prefix) {
				count++
				if count >= limit {
					sh.mu.RUnlock()
					return count, nil
				}
			}
		}
		sh.mu.RUnlock()
	}
	return count, nil
}

// ScanPrefix scans every shard for keys starting with prefix, stopping early once
// limit matches are collected.
func (s *Store) ScanPrefix(ctx context.Context, prefix string, limit int) ([]metadatastore.KeyedRecord, error) {
	_, span := telemetry.StartMetadataSpan(ctx, "scan_prefix", telemetry.StoreName("memory"))
	defer span.End()

	var out []metadatastore.KeyedRecord
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, rec := range sh.data {
			if strings.HasPrefix(k, prefix) {
				out = append(out, metadatastore.KeyedRecord{Key: k, Record: rec})
				if len(out) >= limit {
					sh.mu.RUnlock()
					return out, nil
				}
			}
		}
		sh.mu.RUnlock()
	}
	return out, nil
}

func (s *Store) Healthcheck(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
