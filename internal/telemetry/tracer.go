package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for gateway operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Request attributes
	// ========================================================================
	AttrOperation = "gateway.operation" // put, get, delete, mpu.*
	AttrAccount   = "gateway.account"
	AttrPath      = "gateway.path"
	AttrMethod    = "http.method"
	AttrStatus    = "http.status_code"
	AttrSize      = "gateway.size"
	AttrETag      = "gateway.etag"
	AttrUploadID  = "gateway.upload_id"
	AttrPartNum   = "gateway.part_number"

	// ========================================================================
	// Placement / fan-out attributes
	// ========================================================================
	AttrDurability = "placement.durability"
	AttrDatacenter = "placement.datacenter"
	AttrSharkID    = "placement.shark_id"
	AttrAttempt    = "placement.attempt"

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheHit    = "cache.hit"
	AttrCacheSource = "cache.source"
	AttrCacheState  = "cache.state"

	// ========================================================================
	// Storage backend attributes
	// ========================================================================
	AttrContentID = "content.id"
	AttrStoreName = "store.name"
	AttrStoreType = "store.type"
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"
	AttrRegion    = "storage.region"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	SpanObjectPut    = "object.put"
	SpanObjectGet    = "object.get"
	SpanObjectDelete = "object.delete"
	SpanObjectHead   = "object.head"

	SpanMPUCreate   = "mpu.create"
	SpanMPUPart     = "mpu.uploadpart"
	SpanMPUCommit   = "mpu.commit"
	SpanMPUAbort    = "mpu.abort"

	SpanPlacementPlan = "placement.plan"
	SpanFanoutStream  = "fanout.stream"

	SpanCacheLookup  = "cache.lookup"
	SpanCacheWrite   = "cache.write"
	SpanContentRead  = "content.read"
	SpanContentWrite = "content.write"
	SpanContentStat  = "content.stat"
	SpanMetaLookup   = "metadata.lookup"
	SpanMetaUpdate   = "metadata.update"
	SpanMetaCreate   = "metadata.create"
	SpanMetaDelete   = "metadata.delete"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Operation returns an attribute for the gateway operation name
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// Account returns an attribute for the owner/account identifier
func Account(account string) attribute.KeyValue {
	return attribute.String(AttrAccount, account)
}

// Path returns an attribute for object/directory path
func Path(path string) attribute.KeyValue {
	return attribute.String(AttrPath, path)
}

// Method returns an attribute for the HTTP method
func Method(method string) attribute.KeyValue {
	return attribute.String(AttrMethod, method)
}

// Status returns an attribute for HTTP status code
func Status(status int) attribute.KeyValue {
	return attribute.Int(AttrStatus, status)
}

// Size returns an attribute for object size
func Size(size int64) attribute.KeyValue {
	return attribute.Int64(AttrSize, size)
}

// ETag returns an attribute for an object etag
func ETag(etag string) attribute.KeyValue {
	return attribute.String(AttrETag, etag)
}

// UploadID returns an attribute for a multipart upload id
func UploadID(id string) attribute.KeyValue {
	return attribute.String(AttrUploadID, id)
}

// PartNumber returns an attribute for an MPU part number
func PartNumber(n int) attribute.KeyValue {
	return attribute.Int(AttrPartNum, n)
}

// Durability returns an attribute for the requested replica durability level
func Durability(n int) attribute.KeyValue {
	return attribute.Int(AttrDurability, n)
}

// Datacenter returns an attribute for a storage-node datacenter/zone
func Datacenter(dc string) attribute.KeyValue {
	return attribute.String(AttrDatacenter, dc)
}

// SharkID returns an attribute for a storage-node identifier
func SharkID(id string) attribute.KeyValue {
	return attribute.String(AttrSharkID, id)
}

// Attempt returns an attribute for a retry/fail-over attempt number
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// CacheHit returns an attribute for cache hit indicator
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// CacheSource returns an attribute for cache source
func CacheSource(source string) attribute.KeyValue {
	return attribute.String(AttrCacheSource, source)
}

// CacheState returns an attribute for cache state
func CacheState(state string) attribute.KeyValue {
	return attribute.String(AttrCacheState, state)
}

// ContentID returns an attribute for content ID
func ContentID(id string) attribute.KeyValue {
	return attribute.String(AttrContentID, id)
}

// StoreName returns an attribute for store name
func StoreName(name string) attribute.KeyValue {
	return attribute.String(AttrStoreName, name)
}

// StoreType returns an attribute for store type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// Bucket returns an attribute for S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for S3 object key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for cloud region
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// StartObjectSpan starts a span for an object PUT/GET/DELETE pipeline stage.
func StartObjectSpan(ctx context.Context, spanName, account, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Account(account),
		Path(path),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartContentSpan starts a span for a content store operation.
func StartContentSpan(ctx context.Context, operation string, contentID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ContentID(contentID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "content."+operation, trace.WithAttributes(allAttrs...))
}

// StartCacheSpan starts a span for a cache operation.
func StartCacheSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "cache."+operation, trace.WithAttributes(attrs...))
}

// StartMetadataSpan starts a span for a metadata store operation.
func StartMetadataSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "metadata."+operation, trace.WithAttributes(attrs...))
}

// StartPlacementSpan starts a span for a placement-planner operation.
func StartPlacementSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "placement."+operation, trace.WithAttributes(attrs...))
}

// StartFanoutSpan starts a span for a replica stream fan-out operation.
func StartFanoutSpan(ctx context.Context, operation string, objectID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ContentID(objectID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "fanout."+operation, trace.WithAttributes(allAttrs...))
}

// StartMPUSpan starts a span for a multipart-upload state-machine transition.
func StartMPUSpan(ctx context.Context, operation, uploadID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		UploadID(uploadID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "mpu."+operation, trace.WithAttributes(allAttrs...))
}

// StartSharkSpan starts a span for a storage-node RPC (upload, finalize, read, health).
func StartSharkSpan(ctx context.Context, operation, sharkID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		SharkID(sharkID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "shark."+operation, trace.WithAttributes(allAttrs...))
}
