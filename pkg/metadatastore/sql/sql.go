// Package sql is a metadatastore.Store backed by gorm.io/gorm, supporting PostgreSQL
// (multi-node deployments, schema managed by golang-migrate) or SQLite (single-file
// deployments, schema managed by GORM AutoMigrate), grounded on the teacher's
// pkg/controlplane/store.GORMStore dual-dialector pattern.
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	gormlogger "gorm.io/gorm/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
	"github.com/nimbusstore/gateway/pkg/metadatastore/sql/migrations"
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Store is a metadatastore.Store backed by a relational database via GORM.
type Store struct {
	db     *gorm.DB
	driver Driver
}

// Open connects to the database named by driver and dsn, applies the schema (via
// golang-migrate for postgres, AutoMigrate for sqlite), and returns a ready Store.
func Open(driver Driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("metadatastore/sql: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("metadatastore/sql: connect: %w", err)
	}

	switch driver {
	case DriverPostgres:
		if err := runPostgresMigrations(dsn); err != nil {
			return nil, err
		}
	case DriverSQLite:
		if err := db.AutoMigrate(&metadataRecord{}); err != nil {
			return nil, fmt.Errorf("metadatastore/sql: automigrate: %w", err)
		}
	}

	return &Store{db: db, driver: driver}, nil
}

func runPostgresMigrations(dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("metadatastore/sql: open for migration: %w", err)
	}
	defer sqlDB.Close()

	driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{
		MigrationsTable: "metadatastore_schema_migrations",
		DatabaseName:    "nimbusgw",
	})
	if err != nil {
		return fmt.Errorf("metadatastore/sql: migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("metadatastore/sql: migrate source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("metadatastore/sql: migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("metadatastore/sql: apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (metadatastore.Record, error) {
	_, span := telemetry.StartMetadataSpan(ctx, "get", telemetry.StoreName("sql"))
	defer span.End()

	var row metadataRecord
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return metadatastore.Record{}, gwerr.NewNotFound(key)
	}
	if err != nil {
		return metadatastore.Record{}, gwerr.Wrap(gwerr.ShardUnavailable, "metadatastore/sql: get", err)
	}
	return metadatastore.Record{Bytes: row.Value, Etag: row.Etag}, nil
}

func (s *Store) Put(ctx context.Context, key string, record metadatastore.Record, cond metadatastore.Condition) error {
	_, span := telemetry.StartMetadataSpan(ctx, "put", telemetry.StoreName("sql"))
	defer span.End()

	return s.putTx(s.db.WithContext(ctx), key, record, cond)
}

// putTx applies a conditional write within tx, expressed as the spec prescribes:
// an UPDATE guarded by the etag for IfEtagEquals, or an insert-if-absent for
// IfAbsent, verified by affected-row counts rather than a separate read-then-write
// (which would race under concurrent callers).
func (s *Store) putTx(tx *gorm.DB, key string, record metadatastore.Record, cond metadatastore.Condition) error {
	now := time.Now()

	switch cond.Kind {
	case metadatastore.Unconditional:
		return tx.Save(&metadataRecord{Key: key, Etag: record.Etag, Value: record.Bytes, UpdatedAt: now}).Error

	case metadatastore.IfAbsent:
		result := tx.Exec(
			`INSERT INTO metadata_records (key, etag, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (key) DO NOTHING`,
			key, record.Etag, record.Bytes, now,
		)
		if result.Error != nil {
			return gwerr.Wrap(gwerr.ShardUnavailable, "metadatastore/sql: insert-if-absent", result.Error)
		}
		if result.RowsAffected == 0 {
			return gwerr.NewConflict(key)
		}
		return nil

	case metadatastore.IfEtagEquals:
		result := tx.Exec(
			`UPDATE metadata_records SET etag = ?, value = ?, updated_at = ? WHERE key = ? AND etag = ?`,
			record.Etag, record.Bytes, now, key, cond.Etag,
		)
		if result.Error != nil {
			return gwerr.Wrap(gwerr.ShardUnavailable, "metadatastore/sql: conditional update", result.Error)
		}
		if result.RowsAffected == 0 {
			var exists int64
			tx.Model(&metadataRecord{}).Where("key = ?", key).Count(&exists)
			if exists == 0 {
				return gwerr.NewNotFound(key)
			}
			return gwerr.NewEtagMismatch(key)
		}
		return nil

	default:
		return gwerr.New(gwerr.Internal, "metadatastore/sql: unknown condition kind")
	}
}

func (s *Store) Del(ctx context.Context, key string, cond metadatastore.Condition) error {
	_, span := telemetry.StartMetadataSpan(ctx, "del", telemetry.StoreName("sql"))
	defer span.End()

	return s.delTx(s.db.WithContext(ctx), key, cond)
}

func (s *Store) delTx(tx *gorm.DB, key string, cond metadatastore.Condition) error {
	query := tx.Where("key = ?", key)
	if cond.Kind == metadatastore.IfEtagEquals {
		query = query.Where("etag = ?", cond.Etag)
	}
	result := query.Delete(&metadataRecord{})
	if result.Error != nil {
		return gwerr.Wrap(gwerr.ShardUnavailable, "metadatastore/sql: delete", result.Error)
	}
	if result.RowsAffected == 0 {
		var exists int64
		tx.Model(&metadataRecord{}).Where("key = ?", key).Count(&exists)
		if exists == 0 {
			return gwerr.NewNotFound(key)
		}
		return gwerr.NewEtagMismatch(key)
	}
	return nil
}

// Batch executes ops inside a single SQL transaction. The sql backend has no
// physical shard boundary, but like the badger and memory backends it still
// rejects a batch whose keys span more than one shard.
func (s *Store) Batch(ctx context.Context, ops []metadatastore.Op) error {
	_, span := telemetry.StartMetadataSpan(ctx, "batch", telemetry.StoreName("sql"))
	defer span.End()

	if len(ops) == 0 {
		return nil
	}
	keys := make([]string, len(ops))
	for i, op := range ops {
		keys[i] = op.Key
	}
	if _, ok := metadatastore.SameShard(keys); !ok {
		return gwerr.New(gwerr.Internal, "batch ops span multiple shards")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case metadatastore.OpPut:
				err = s.putTx(tx, op.Key, op.Record, op.Condition)
			case metadatastore.OpDel:
				err = s.delTx(tx, op.Key, op.Condition)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// CountPrefix counts keys starting with prefix, capped at limit via a bounded LIKE
// query (the sql backend has no physical shard to scan per-shard, unlike badger).
func (s *Store) CountPrefix(ctx context.Context, prefix string, limit int) (int, error) {
	_, span := telemetry.StartMetadataSpan(ctx, "count_prefix", telemetry.StoreName("sql"))
	defer span.End()

	var count int64
	escaped := strings.NewReplacer("%", "\\%", "_", "\\_").Replace(prefix)
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM (SELECT key FROM metadata_records WHERE key LIKE ? ESCAPE '\' LIMIT ?) t`,
		escaped+"%", limit,
	).Scan(&count).Error
	if err != nil {
		return 0, gwerr.Wrap(gwerr.ShardUnavailable, "metadatastore/sql: count prefix", err)
	}
	return int(count), nil
}

// ScanPrefix returns every record whose key starts with prefix, capped at limit.
func (s *Store) ScanPrefix(ctx context.Context, prefix string, limit int) ([]metadatastore.KeyedRecord, error) {
	_, span := telemetry.StartMetadataSpan(ctx, "scan_prefix", telemetry.StoreName("sql"))
	defer span.End()

	escaped := strings.NewReplacer("%", "\\%", "_", "\\_").Replace(prefix)
	var rows []metadataRecord
	err := s.db.WithContext(ctx).
		Where("key LIKE ? ESCAPE '\\'", escaped+"%").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, gwerr.Wrap(gwerr.ShardUnavailable, "metadatastore/sql: scan prefix", err)
	}
	out := make([]metadatastore.KeyedRecord, len(rows))
	for i, row := range rows {
		out[i] = metadatastore.KeyedRecord{Key: row.Key, Record: metadatastore.Record{Bytes: row.Value, Etag: row.Etag}}
	}
	return out, nil
}

func (s *Store) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return gwerr.Wrap(gwerr.ShardUnavailable, "metadatastore/sql: underlying db", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return gwerr.Wrap(gwerr.ShardUnavailable, "metadatastore/sql: ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
