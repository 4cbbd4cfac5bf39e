// Package object implements the PUT/GET/HEAD/DELETE pipelines for objects and
// directories: request parsing, conditional-header evaluation, parent-directory
// checks, placement, fan-out, and metadata persistence.
package object

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nimbusstore/gateway/pkg/metadatastore"
)

// ObjectRecord is the durable metadata entry for a single object.
type ObjectRecord struct {
	Path string `json:"path"`
	// Etag is the opaque token advanced on every mutation (§3), used for
	// If-Match/If-None-Match optimistic concurrency. Distinct from ContentHash,
	// which is the content digest and never changes for identical bytes.
	Etag          string            `json:"etag"`
	ObjectID      string            `json:"object_id"`
	ContentLength int64             `json:"content_length"`
	ContentHash   string            `json:"content_hash"`
	ContentType   string            `json:"content_type,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	ReplicaSet    []string          `json:"replica_set,omitempty"`
	Owner         string            `json:"owner"`
	CreatedAtMs   int64             `json:"created_at_ms"`
	ModifiedAtMs  int64             `json:"modified_at_ms"`
}

// DirectoryRecord is the durable metadata entry for a directory.
type DirectoryRecord struct {
	Path         string            `json:"path"`
	ParentPath   string            `json:"parent_path"`
	Owner        string            `json:"owner"`
	Type         string            `json:"type"`
	ModifiedAtMs int64             `json:"modified_at_ms"`
	Headers      map[string]string `json:"headers,omitempty"`
}

const directoryRecordType = "directory"

// directoryContentType is the sentinel Content-Type that marks a PUT as a directory
// operation rather than an object upload (mirrors Manta's mkdir-via-PUT convention).
const directoryContentType = "application/directory"

// EncodeObjectRecord serializes rec into a metadatastore.Record under etag, stamping
// rec.Etag with the same value so it round-trips through DecodeObjectRecord as a
// first-class record attribute rather than only living on the transport envelope.
// Exported so pkg/mpu can build the object record a commit inserts alongside its
// finalizing record, without duplicating the wire format.
func EncodeObjectRecord(rec ObjectRecord, etag string) (metadatastore.Record, error) {
	rec.Etag = etag
	b, err := json.Marshal(rec)
	if err != nil {
		return metadatastore.Record{}, fmt.Errorf("object: marshal object record: %w", err)
	}
	return metadatastore.Record{Bytes: b, Etag: etag}, nil
}

// DecodeObjectRecord is the inverse of EncodeObjectRecord.
func DecodeObjectRecord(rec metadatastore.Record) (ObjectRecord, error) {
	var out ObjectRecord
	if err := json.Unmarshal(rec.Bytes, &out); err != nil {
		return ObjectRecord{}, fmt.Errorf("object: unmarshal object record: %w", err)
	}
	return out, nil
}

func encodeDirectoryRecord(rec DirectoryRecord, etag string) (metadatastore.Record, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return metadatastore.Record{}, fmt.Errorf("object: marshal directory record: %w", err)
	}
	return metadatastore.Record{Bytes: b, Etag: etag}, nil
}

func decodeDirectoryRecord(rec metadatastore.Record) (DirectoryRecord, error) {
	var out DirectoryRecord
	if err := json.Unmarshal(rec.Bytes, &out); err != nil {
		return DirectoryRecord{}, fmt.Errorf("object: unmarshal directory record: %w", err)
	}
	return out, nil
}

func directoryMetadataEqual(a, b DirectoryRecord) bool {
	if a.Owner != b.Owner || len(a.Headers) != len(b.Headers) {
		return false
	}
	for k, v := range a.Headers {
		if b.Headers[k] != v {
			return false
		}
	}
	return true
}

// normalizePath strips leading/trailing slashes so path keys are stable regardless
// of how the client wrote the request path.
func normalizePath(p string) string {
	return strings.Trim(p, "/")
}

// IsRootPath reports whether p names the account's root directory.
func IsRootPath(p string) bool {
	return normalizePath(p) == ""
}

// ParentPath returns the normalized parent path of p, or "" if p is a top-level entry.
func ParentPath(p string) string {
	p = normalizePath(p)
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// ObjectKey returns the metadata-tier key for an object at path under account.
func ObjectKey(account, path string) string {
	return fmt.Sprintf("objects/%s/%s", account, normalizePath(path))
}

// DirectoryKey returns the metadata-tier key for a directory at path under account.
func DirectoryKey(account, path string) string {
	return fmt.Sprintf("dirs/%s/%s", account, normalizePath(path))
}
