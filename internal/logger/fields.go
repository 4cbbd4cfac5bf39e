package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Request & Operation
	// ========================================================================
	KeyRequestID = "request_id" // per-request correlation id (chi request id)
	KeyMethod    = "method"     // HTTP method
	KeyAccount   = "account"    // owner/account identifier
	KeyUploadID  = "upload_id"  // multipart upload id
	KeyStatus    = "status"     // HTTP status code
	KeyStatusMsg = "status_msg" // Human-readable status message
	KeyOperation = "operation"  // Sub-operation type for complex operations

	// ========================================================================
	// Object & Path Operations
	// ========================================================================
	KeyPath       = "path"        // Object or directory path
	KeyParentPath = "parent_path" // Parent directory path
	KeyOldPath    = "old_path"    // Source path for copy/move operations
	KeyNewPath    = "new_path"    // Destination path for copy/move operations
	KeyContentType = "content_type" // MIME content type
	KeyETag       = "etag"        // Object etag
	KeySize       = "size"        // Object size in bytes

	// ========================================================================
	// I/O Operations
	// ========================================================================
	KeyOffset       = "offset"        // Range offset for ranged reads
	KeyCount        = "count"         // Byte count requested
	KeyBytesRead    = "bytes_read"    // Actual bytes read
	KeyBytesWritten = "bytes_written" // Actual bytes written
	KeyDurability   = "durability"    // Requested replica durability level

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric/symbolic error code
	KeySource     = "source"      // Data source: cache, content_store, metadata_store

	// ========================================================================
	// Storage Backend (Shark / Content Store)
	// ========================================================================
	KeyPayloadID  = "content_id"  // Content-addressed payload identifier
	KeyStoreName  = "store_name"  // Named store identifier from registry
	KeyStoreType  = "store_type"  // Store type: memory, filesystem, s3
	KeyBucket     = "bucket"      // Cloud bucket name (S3)
	KeyKey        = "key"         // Object key in cloud storage
	KeyRegion     = "region"      // Cloud region
	KeyDatacenter = "datacenter"  // Storage-node datacenter/zone
	KeySharkID    = "shark_id"    // Storage-node (shark) identifier
	KeyAttempt    = "attempt"     // Retry/fail-over attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// Metadata Store
	// ========================================================================
	KeyMetadataStore = "metadata_store" // Metadata shard store name
	KeyShard         = "shard"          // Metadata shard identifier

	// ========================================================================
	// Cache Layer
	// ========================================================================
	KeyCacheHit      = "cache_hit"      // Cache hit indicator
	KeyCacheState    = "cache_state"    // Cache state: dirty, clean, uploading
	KeyCacheSize     = "cache_size"     // Current cache size
	KeyCacheCapacity = "cache_capacity" // Maximum cache capacity
	KeyEvicted       = "evicted"        // Number of entries evicted

	// ========================================================================
	// Directory / Listing Operations
	// ========================================================================
	KeyEntries    = "entries"     // Number of directory entries
	KeyMarker     = "marker"      // Continuation marker
	KeyPrefix     = "prefix"      // Listing prefix filter
	KeyMaxEntries = "max_entries" // Maximum entries requested

	// ========================================================================
	// Multipart Upload
	// ========================================================================
	KeyPartNumber = "part_number" // MPU part number
	KeyPartCount  = "part_count"  // Number of parts in an MPU
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Request & Operation
// ----------------------------------------------------------------------------

// RequestID returns a slog.Attr for the per-request correlation id
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Method returns a slog.Attr for the HTTP method
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Account returns a slog.Attr for the owner/account identifier
func Account(a string) slog.Attr {
	return slog.String(KeyAccount, a)
}

// UploadID returns a slog.Attr for a multipart upload id
func UploadID(id string) slog.Attr {
	return slog.String(KeyUploadID, id)
}

// Status returns a slog.Attr for HTTP status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// StatusMsg returns a slog.Attr for human-readable status message
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// ----------------------------------------------------------------------------
// Object & Path Operations
// ----------------------------------------------------------------------------

// Path returns a slog.Attr for object/directory path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// ParentPath returns a slog.Attr for parent directory path
func ParentPath(p string) slog.Attr {
	return slog.String(KeyParentPath, p)
}

// OldPath returns a slog.Attr for source path in copy/move operations
func OldPath(p string) slog.Attr {
	return slog.String(KeyOldPath, p)
}

// NewPath returns a slog.Attr for destination path in copy/move operations
func NewPath(p string) slog.Attr {
	return slog.String(KeyNewPath, p)
}

// ContentType returns a slog.Attr for MIME content type
func ContentType(t string) slog.Attr {
	return slog.String(KeyContentType, t)
}

// ETag returns a slog.Attr for an object etag
func ETag(tag string) slog.Attr {
	return slog.String(KeyETag, tag)
}

// Size returns a slog.Attr for object size
func Size(s int64) slog.Attr {
	return slog.Int64(KeySize, s)
}

// ----------------------------------------------------------------------------
// I/O Operations
// ----------------------------------------------------------------------------

// Offset returns a slog.Attr for range offset
func Offset(off int64) slog.Attr {
	return slog.Int64(KeyOffset, off)
}

// Count returns a slog.Attr for byte count requested
func Count(c int64) slog.Attr {
	return slog.Int64(KeyCount, c)
}

// BytesRead returns a slog.Attr for actual bytes read
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for actual bytes written
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// Durability returns a slog.Attr for requested replica durability level
func Durability(n int) slog.Attr {
	return slog.Int(KeyDurability, n)
}

// ----------------------------------------------------------------------------
// Client Identification
// ----------------------------------------------------------------------------

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a symbolic error code
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Source returns a slog.Attr for data source
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// ----------------------------------------------------------------------------
// Storage Backend (Shark / Content Store)
// ----------------------------------------------------------------------------

// PayloadID returns a slog.Attr for content-addressed payload identifier
func PayloadID(id string) slog.Attr {
	return slog.String(KeyPayloadID, id)
}

// StoreName returns a slog.Attr for named store identifier
func StoreName(name string) slog.Attr {
	return slog.String(KeyStoreName, name)
}

// StoreType returns a slog.Attr for store type
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}

// Bucket returns a slog.Attr for cloud bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Key returns a slog.Attr for object key in cloud storage
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// Region returns a slog.Attr for cloud region
func Region(r string) slog.Attr {
	return slog.String(KeyRegion, r)
}

// Datacenter returns a slog.Attr for storage-node datacenter/zone
func Datacenter(dc string) slog.Attr {
	return slog.String(KeyDatacenter, dc)
}

// SharkID returns a slog.Attr for storage-node identifier
func SharkID(id string) slog.Attr {
	return slog.String(KeySharkID, id)
}

// Attempt returns a slog.Attr for retry/fail-over attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// ----------------------------------------------------------------------------
// Metadata Store
// ----------------------------------------------------------------------------

// MetadataStore returns a slog.Attr for metadata shard store name
func MetadataStore(name string) slog.Attr {
	return slog.String(KeyMetadataStore, name)
}

// Shard returns a slog.Attr for metadata shard identifier
func Shard(id string) slog.Attr {
	return slog.String(KeyShard, id)
}

// ----------------------------------------------------------------------------
// Cache Layer
// ----------------------------------------------------------------------------

// CacheHit returns a slog.Attr for cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// CacheState returns a slog.Attr for cache state
func CacheState(state string) slog.Attr {
	return slog.String(KeyCacheState, state)
}

// CacheSize returns a slog.Attr for current cache size
func CacheSize(size int64) slog.Attr {
	return slog.Int64(KeyCacheSize, size)
}

// CacheCapacity returns a slog.Attr for maximum cache capacity
func CacheCapacity(capacity int64) slog.Attr {
	return slog.Int64(KeyCacheCapacity, capacity)
}

// Evicted returns a slog.Attr for number of entries evicted
func Evicted(n int) slog.Attr {
	return slog.Int(KeyEvicted, n)
}

// ----------------------------------------------------------------------------
// Directory / Listing Operations
// ----------------------------------------------------------------------------

// Entries returns a slog.Attr for number of directory entries
func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

// Marker returns a slog.Attr for a listing continuation marker
func Marker(m string) slog.Attr {
	return slog.String(KeyMarker, m)
}

// Prefix returns a slog.Attr for a listing prefix filter
func Prefix(p string) slog.Attr {
	return slog.String(KeyPrefix, p)
}

// MaxEntries returns a slog.Attr for maximum entries requested
func MaxEntries(n int) slog.Attr {
	return slog.Int(KeyMaxEntries, n)
}

// ----------------------------------------------------------------------------
// Multipart Upload
// ----------------------------------------------------------------------------

// PartNumber returns a slog.Attr for an MPU part number
func PartNumber(n int) slog.Attr {
	return slog.Int(KeyPartNumber, n)
}

// PartCount returns a slog.Attr for the number of parts in an MPU
func PartCount(n int) slog.Attr {
	return slog.Int(KeyPartCount, n)
}
