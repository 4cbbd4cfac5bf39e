// Package badger is a metadatastore.Store backed by embedded BadgerDB instances, one
// per logical shard directory, grounded on the teacher's pkg/metadata/badger store:
// every write happens inside a badger.Txn so conditional semantics (if-absent,
// if-etag-equals) are checked and applied atomically.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
)

// Store is a metadatastore.Store backed by one BadgerDB instance per shard.
type Store struct {
	dbs [metadatastore.ShardCount]*badgerdb.DB
}

// Open opens (creating if necessary) a BadgerDB instance under dir/shard-<n> for each
// shard. dir is typically config.MetadataConfig.Badger.Dir.
func Open(dir string) (*Store, error) {
	s := &Store{}
	for i := 0; i < metadatastore.ShardCount; i++ {
		shardDir := filepath.Join(dir, fmt.Sprintf("shard-%02d", i))
		opts := badgerdb.DefaultOptions(shardDir).WithLogger(nil)
		db, err := badgerdb.Open(opts)
		if err != nil {
			s.closeOpened(i)
			return nil, fmt.Errorf("open shard %d: %w", i, err)
		}
		s.dbs[i] = db
	}
	return s, nil
}

func (s *Store) closeOpened(upTo int) {
	for i := 0; i < upTo; i++ {
		_ = s.dbs[i].Close()
	}
}

func (s *Store) dbFor(key string) *badgerdb.DB {
	return s.dbs[metadatastore.ShardOf(key)]
}

// record is the on-disk encoding of a metadatastore.Record: a length-prefixed etag
// followed by the record bytes.
func encodeRecord(r metadatastore.Record) []byte {
	etag := []byte(r.Etag)
	buf := make([]byte, 4+len(etag)+len(r.Bytes))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(etag)))
	copy(buf[4:], etag)
	copy(buf[4+len(etag):], r.Bytes)
	return buf
}

func decodeRecord(buf []byte) (metadatastore.Record, error) {
	if len(buf) < 4 {
		return metadatastore.Record{}, errors.New("corrupt record: too short")
	}
	etagLen := binary.BigEndian.Uint32(buf[:4])
	if uint32(len(buf)) < 4+etagLen {
		return metadatastore.Record{}, errors.New("corrupt record: truncated etag")
	}
	etag := string(buf[4 : 4+etagLen])
	data := buf[4+etagLen:]
	out := make([]byte, len(data))
	copy(out, data)
	return metadatastore.Record{Etag: etag, Bytes: out}, nil
}

func (s *Store) Get(ctx context.Context, key string) (metadatastore.Record, error) {
	_, span := telemetry.StartMetadataSpan(ctx, "get", telemetry.StoreName("badger"))
	defer span.End()

	var rec metadatastore.Record
	err := s.dbFor(key).View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return gwerr.NewNotFound(key)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := decodeRecord(val)
			if err != nil {
				return err
			}
			rec = decoded
			return nil
		})
	})
	if err != nil {
		return metadatastore.Record{}, err
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, key string, record metadatastore.Record, cond metadatastore.Condition) error {
	_, span := telemetry.StartMetadataSpan(ctx, "put", telemetry.StoreName("badger"))
	defer span.End()

	return s.dbFor(key).Update(func(txn *badgerdb.Txn) error {
		return putTxn(txn, key, record, cond)
	})
}

func putTxn(txn *badgerdb.Txn, key string, record metadatastore.Record, cond metadatastore.Condition) error {
	existing, exists, err := getTxn(txn, key)
	if err != nil {
		return err
	}
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
	return txn.Set([]byte(key), encodeRecord(record))
}

func getTxn(txn *badgerdb.Txn, key string) (metadatastore.Record, bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return metadatastore.Record{}, false, nil
	}
	if err != nil {
		return metadatastore.Record{}, false, err
	}
	var rec metadatastore.Record
	err = item.Value(func(val []byte) error {
		decoded, err := decodeRecord(val)
		if err != nil {
			return err
		}
		rec = decoded
		return nil
	})
	if err != nil {
		return metadatastore.Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) Del(ctx context.Context, key string, cond metadatastore.Condition) error {
	_, span := telemetry.StartMetadataSpan(ctx, "del", telemetry.StoreName("badger"))
	defer span.End()

	return s.dbFor(key).Update(func(txn *badgerdb.Txn) error {
		return delTxn(txn, key, cond)
	})
}

func delTxn(txn *badgerdb.Txn, key string, cond metadatastore.Condition) error {
	existing, exists, err := getTxn(txn, key)
	if err != nil {
		return err
	}
	if !exists {
		return gwerr.NewNotFound(key)
	}
	if cond.Kind == metadatastore.IfEtagEquals && existing.Etag != cond.Etag {
		return gwerr.NewEtagMismatch(key)
	}
	return txn.Delete([]byte(key))
}

// Batch executes ops in a single BadgerDB transaction on the ops' shard. All keys must
// hash to the same shard.
func (s *Store) Batch(ctx context.Context, ops []metadatastore.Op) error {
	_, span := telemetry.StartMetadataSpan(ctx, "batch", telemetry.StoreName("badger"))
	defer span.End()

	if len(ops) == 0 {
		return nil
	}
	keys := make([]string, len(ops))
	for i, op := range ops {
		keys[i] = op.Key
	}
	shardIdx, ok := metadatastore.SameShard(keys)
	if !ok {
		return gwerr.New(gwerr.Internal, "batch ops span multiple shards")
	}

	return s.dbs[shardIdx].Update(func(txn *badgerdb.Txn) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case metadatastore.OpPut:
				err = putTxn(txn, op.Key, op.Record, op.Condition)
			case metadatastore.OpDel:
				err = delTxn(txn, op.Key, op.Condition)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// CountPrefix scans every shard's keyspace for keys starting with prefix, stopping
// early once limit matches are found.
func (s *Store) CountPrefix(ctx context.Context, prefix string, limit int) (int, error) {
	_, span := telemetry.StartMetadataSpan(ctx, "count_prefix", telemetry.StoreName("badger"))
	defer span.End()

	count := 0
	for _, db := range s.dbs {
		err := db.View(func(txn *badgerdb.Txn) error {
			opts := badgerdb.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = []byte(prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				count++
				if count >= limit {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		if count >= limit {
			return count, nil
		}
	}
	return count, nil
}

// ScanPrefix scans every shard's keyspace for keys starting with prefix, decoding
// each matching value, and stops early once limit matches are collected.
func (s *Store) ScanPrefix(ctx context.Context, prefix string, limit int) ([]metadatastore.KeyedRecord, error) {
	_, span := telemetry.StartMetadataSpan(ctx, "scan_prefix", telemetry.StoreName("badger"))
	defer span.End()

	var out []metadatastore.KeyedRecord
	for _, db := range s.dbs {
		err := db.View(func(txn *badgerdb.Txn) error {
			opts := badgerdb.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				item := it.Item()
				key := string(item.KeyCopy(nil))
				var rec metadatastore.Record
				if err := item.Value(func(val []byte) error {
					decoded, err := decodeRecord(val)
					if err != nil {
						return err
					}
					rec = decoded
					return nil
				}); err != nil {
					return err
				}
				out = append(out, metadatastore.KeyedRecord{Key: key, Record: rec})
				if len(out) >= limit {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(out) >= limit {
			return out, nil
		}
	}
	return out, nil
}

func (s *Store) Healthcheck(ctx context.Context) error {
	for i, db := range s.dbs {
		if err := db.Update(func(txn *badgerdb.Txn) error { return nil }); err != nil {
			return gwerr.New(gwerr.ShardUnavailable, fmt.Sprintf("shard %d unreachable: %v", i, err))
		}
	}
	return nil
}

func (s *Store) Close() error {
	var firstErr error
	for _, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
