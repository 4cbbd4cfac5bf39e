package sql

import "time"

// metadataRecord is the GORM model backing metadatastore.Store on a relational
// database. A single table holds every record regardless of logical shard; the shard
// concept only matters for the badger backend's directory-per-shard layout.
type metadataRecord struct {
	Key       string `gorm:"primaryKey;column:key"`
	Etag      string `gorm:"column:etag"`
	Value     []byte `gorm:"column:value"`
	UpdatedAt time.Time
}

func (metadataRecord) TableName() string { return "metadata_records" }
