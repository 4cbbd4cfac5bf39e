// Package mpu implements the multipart-upload state machine (§4.7) and the commit
// coordinator that finalizes an upload into an object record (§4.8).
package mpu

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nimbusstore/gateway/pkg/metadatastore"
)

// State is the upload record's lifecycle state.
type State int

const (
	StateCreated State = iota
	StateFinalizing
)

func (s State) String() string {
	if s == StateFinalizing {
		return "FINALIZING"
	}
	return "CREATED"
}

// FinalizingType labels the terminal branch of a FINALIZING upload.
type FinalizingType int

const (
	FinalizingNone FinalizingType = iota
	FinalizingAbort
	FinalizingCommit
)

func (t FinalizingType) String() string {
	switch t {
	case FinalizingAbort:
		return "ABORT"
	case FinalizingCommit:
		return "COMMIT"
	default:
		return ""
	}
}

// UploadRecord is the durable per-MPU state entry (§3 "Upload record").
type UploadRecord struct {
	UploadID        string            `json:"upload_id"`
	State           State             `json:"state"`
	FinalizingType  FinalizingType    `json:"finalizing_type"`
	TargetPath      string            `json:"target_path"`
	UploadPath      string            `json:"upload_path"`
	Headers         map[string]string `json:"headers,omitempty"`
	ReplicaSet      []string          `json:"replica_set,omitempty"`
	ObjectID        string            `json:"object_id"`
	DeclaredSize    int64             `json:"declared_size"`
	HasDeclaredSize bool              `json:"has_declared_size"`
	PartsDigest     string            `json:"parts_digest,omitempty"`
	Owner           string            `json:"owner"`
	CreatedAtMs     int64             `json:"created_at_ms"`
}

// FinalizingRecord marks that an upload has been finalized exactly once, stored on
// the target object's shard so it co-locates with the object record it commits
// alongside (§3 "Finalizing record").
type FinalizingRecord struct {
	UploadID       string         `json:"upload_id"`
	FinalizingType FinalizingType `json:"finalizing_type"`
	Owner          string         `json:"owner"`
	TargetPath     string         `json:"target_path"`
	ObjectID       string         `json:"object_id"`
	ContentHash    string         `json:"content_hash,omitempty"`
}

// PartRecord is the per-part metadata recorded by upload-part, read back by commit.
type PartRecord struct {
	UploadID      string `json:"upload_id"`
	Index         int    `json:"index"`
	ContentLength int64  `json:"content_length"`
}

func encodeUploadRecord(rec UploadRecord, etag string) (metadatastore.Record, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return metadatastore.Record{}, fmt.Errorf("mpu: marshal upload record: %w", err)
	}
	return metadatastore.Record{Bytes: b, Etag: etag}, nil
}

func decodeUploadRecord(rec metadatastore.Record) (UploadRecord, error) {
	var out UploadRecord
	if err := json.Unmarshal(rec.Bytes, &out); err != nil {
		return UploadRecord{}, fmt.Errorf("mpu: unmarshal upload record: %w", err)
	}
	return out, nil
}

func encodeFinalizingRecord(rec FinalizingRecord, etag string) (metadatastore.Record, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return metadatastore.Record{}, fmt.Errorf("mpu: marshal finalizing record: %w", err)
	}
	return metadatastore.Record{Bytes: b, Etag: etag}, nil
}

func decodeFinalizingRecord(rec metadatastore.Record) (FinalizingRecord, error) {
	var out FinalizingRecord
	if err := json.Unmarshal(rec.Bytes, &out); err != nil {
		return FinalizingRecord{}, fmt.Errorf("mpu: unmarshal finalizing record: %w", err)
	}
	return out, nil
}

func encodePartRecord(rec PartRecord, etag string) (metadatastore.Record, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return metadatastore.Record{}, fmt.Errorf("mpu: marshal part record: %w", err)
	}
	return metadatastore.Record{Bytes: b, Etag: etag}, nil
}

func decodePartRecord(rec metadatastore.Record) (PartRecord, error) {
	var out PartRecord
	if err := json.Unmarshal(rec.Bytes, &out); err != nil {
		return PartRecord{}, fmt.Errorf("mpu: unmarshal part record: %w", err)
	}
	return out, nil
}

// UploadKey returns the metadata-tier key for an upload record under account.
func UploadKey(account, uploadID string) string {
	return fmt.Sprintf("uploads/%s/%s", account, uploadID)
}

// FinalizingKey returns the metadata-tier key for a finalizing record. Its inclusion
// of targetPathKey guarantees shard co-location with the object record it commits
// alongside (§4.3 "Shard selection").
func FinalizingKey(uploadID, targetPathKey string) string {
	return fmt.Sprintf("finalizing/%s:%s", uploadID, targetPathKey)
}

// PartKey returns the metadata-tier key for part index under uploadPath.
func PartKey(uploadPath string, index int) string {
	return fmt.Sprintf("%s/%d", strings.TrimSuffix(uploadPath, "/"), index)
}

// PrefixDir returns the hex-prefix directory of length n for uploadID, or "" if n<=0.
func PrefixDir(uploadID string, n int) string {
	if n <= 0 || n > len(uploadID) {
		return ""
	}
	return uploadID[:n]
}

const maxParts = 10000

// minPartSize is the minimum size every part but the last must meet (§4.7 MPU-commit).
const minPartSize = 5 * 1024 * 1024
