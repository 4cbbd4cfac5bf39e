package object

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/conditional"
	"github.com/nimbusstore/gateway/pkg/fanout"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
)

// maxDirectoryEntries bounds how many object or directory records a single directory
// may contain; enforced at the moment a new child is inserted.
const maxDirectoryEntries = 1_000_000

// PutRequest is the parsed, not-yet-validated input to Put.
type PutRequest struct {
	Account string
	Path    string
	Body    io.Reader

	// ContentLength is the declared body size, or -1 if the client used chunked
	// transfer encoding and the size is unknown until the body is fully read.
	ContentLength int64
	// MaxContentLength is the client-declared cap (Max-Content-Length header); 0 means
	// "use the configured default".
	MaxContentLength int64

	// Copies is the requested replica count; 0 means "use the default".
	Copies   int
	Operator bool

	ContentType string
	Headers     map[string]string

	// ClientDigest is the client-supplied content hash (base64 MD5), "" if absent.
	ClientDigest string

	// HasContentLength, HasContentMD5 and HasDurabilityLevel record whether the
	// corresponding object-only headers were present at all, independent of their
	// values, since a directory PUT must reject their mere presence.
	HasContentLength   bool
	HasContentMD5      bool
	HasDurabilityLevel bool

	IfMatch           string
	IfNoneMatch       string
	IfModifiedSince   string
	IfUnmodifiedSince string
}

// PutResult describes the outcome of a successful Put.
type PutResult struct {
	IsDirectory bool
	NoOp        bool
	Record      ObjectRecord
	Dir         DirectoryRecord
	Digest      string
}

// Put runs the full PUT pipeline (§4.5): conditional check, root-directory rejection,
// argument parsing, directory-vs-object routing, parent checks, placement, fan-out,
// and the final conditional metadata write.
func Put(ctx context.Context, app *Application, req PutRequest) (PutResult, error) {
	path := normalizePath(req.Path)
	ctx, span := telemetry.StartObjectSpan(ctx, "object.put", req.Account, path)
	defer span.End()

	existing, err := loadExisting(ctx, app, req.Account, path)
	if err != nil {
		return PutResult{}, err
	}

	// 1. conditional-header evaluation against the current record, if any.
	resource := conditional.Resource{Etag: existing.etag, ModTime: existing.modTime, Exists: existing.exists()}
	if _, err := conditional.Evaluate(http.MethodPut, resource, req.IfMatch, req.IfNoneMatch, req.IfModifiedSince, req.IfUnmodifiedSince); err != nil {
		return PutResult{}, err
	}

	// 2. reject attempts to PUT the root directory.
	if IsRootPath(path) {
		return PutResult{}, gwerr.NewBadRequest("cannot PUT the account root")
	}

	if req.ContentType == directoryContentType {
		return putDirectory(ctx, app, req, path, existing)
	}

	// 4. reject PUT-object onto an existing directory path.
	if existing.kind == existingDirectory {
		return PutResult{}, gwerr.NewBadRequest("cannot PUT an object onto an existing directory")
	}

	return putObject(ctx, app, req, path, existing)
}

func putDirectory(ctx context.Context, app *Application, req PutRequest, path string, existing existingEntry) (PutResult, error) {
	if req.HasContentLength || req.HasContentMD5 || req.HasDurabilityLevel {
		return PutResult{}, gwerr.NewBadRequest("directory PUT may not set Content-Length, Content-MD5, or Durability-Level")
	}
	if existing.kind == existingObject {
		return PutResult{}, gwerr.NewBadRequest("cannot PUT a directory onto an existing object")
	}

	parentPath := ParentPath(path)
	if err := ensureParentDirectory(ctx, app, req.Account, parentPath); err != nil {
		return PutResult{}, err
	}

	newDir := DirectoryRecord{
		Path:         path,
		ParentPath:   parentPath,
		Owner:        req.Account,
		Type:         directoryRecordType,
		ModifiedAtMs: nowMillis(),
		Headers:      normalizeHeaders(req.Headers),
	}
	key := DirectoryKey(req.Account, path)

	if existing.kind == existingDirectory {
		if directoryMetadataEqual(existing.dir, newDir) {
			return PutResult{IsDirectory: true, NoOp: true, Dir: existing.dir}, nil
		}
		rec, err := encodeDirectoryRecord(newDir, uuid.NewString())
		if err != nil {
			return PutResult{}, err
		}
		if err := app.Metadata.Put(ctx, key, rec, metadatastore.CondIfEtagEquals(existing.etag)); err != nil {
			if gwerr.IsEtagMismatch(err) {
				return PutResult{}, gwerr.NewConcurrentRequest(key)
			}
			return PutResult{}, err
		}
		return PutResult{IsDirectory: true, Dir: newDir}, nil
	}

	if err := enforceParentEntryCount(ctx, app, req.Account, parentPath); err != nil {
		return PutResult{}, err
	}
	rec, err := encodeDirectoryRecord(newDir, uuid.NewString())
	if err != nil {
		return PutResult{}, err
	}
	if err := app.Metadata.Put(ctx, key, rec, metadatastore.CondIfAbsent()); err != nil {
		if gwerr.Is(err, gwerr.Conflict) {
			return PutResult{}, gwerr.NewConcurrentRequest(key)
		}
		return PutResult{}, err
	}
	return PutResult{IsDirectory: true, Dir: newDir}, nil
}

func putObject(ctx context.Context, app *Application, req PutRequest, path string, existing existingEntry) (PutResult, error) {
	// 3. parse arguments: resolve chunked vs content-length, normalize copies, mint an id.
	maxSize := req.MaxContentLength
	if maxSize <= 0 {
		maxSize = app.Config.Storage.DefaultMaxStreamingSize.Int64()
	}

	// A missing declared size is always treated as valid (the cap is enforced against
	// the bytes actually streamed instead); an oversized declared size is rejected
	// immediately, before any placement or fan-out work begins.
	if req.ContentLength >= 0 && req.ContentLength > maxSize {
		return PutResult{}, gwerr.NewMaxContentLength(req.ContentLength, maxSize)
	}

	copies := normalizeCopies(req.Copies, app.Config.Storage.MaxObjectCopies)
	objectID := uuid.NewString()

	// 5. ensure the parent directory record exists.
	parentPath := ParentPath(path)
	if err := ensureParentDirectory(ctx, app, req.Account, parentPath); err != nil {
		return PutResult{}, err
	}

	// 6. enforce parent directory entry count.
	if err := enforceParentEntryCount(ctx, app, req.Account, parentPath); err != nil {
		return PutResult{}, err
	}

	sizeHint := req.ContentLength
	body := req.Body
	if sizeHint < 0 {
		sizeHint = maxSize
		body = io.LimitReader(req.Body, maxSize+1)
	}

	// 7. placement.
	candidates, err := app.Planner.Plan(ctx, sizeHint, copies, req.Operator)
	if err != nil {
		return PutResult{}, err
	}

	// 8. fan-out.
	streamed, err := fanout.Stream(ctx, app.Fanout, candidates, body, objectID, sizeHint, req.ClientDigest, app.FanoutMetrics)
	if err != nil {
		return PutResult{}, err
	}
	if req.ContentLength < 0 && streamed.Written > maxSize {
		return PutResult{}, gwerr.NewMaxContentLength(streamed.Written, maxSize)
	}

	createdAt := nowMillis()
	if existing.kind == existingObject {
		createdAt = existing.obj.CreatedAtMs
	}

	rec := ObjectRecord{
		Path:          path,
		Etag:          uuid.NewString(),
		ObjectID:      objectID,
		ContentLength: streamed.Written,
		ContentHash:   streamed.Digest,
		ContentType:   req.ContentType,
		Headers:       normalizeHeaders(req.Headers),
		ReplicaSet:    streamed.Chosen.IDs(),
		Owner:         req.Account,
		CreatedAtMs:   createdAt,
		ModifiedAtMs:  nowMillis(),
	}
	encoded, err := EncodeObjectRecord(rec, rec.Etag)
	if err != nil {
		return PutResult{}, err
	}

	key := ObjectKey(req.Account, path)
	cond := metadatastore.CondIfAbsent()
	if existing.kind == existingObject {
		cond = metadatastore.CondIfEtagEquals(existing.etag)
	}

	// 9. persist conditional on the observed prior etag (or absence). No retry on a
	// lost race: the caller must re-submit.
	if err := app.Metadata.Put(ctx, key, encoded, cond); err != nil {
		if gwerr.IsEtagMismatch(err) || gwerr.Is(err, gwerr.Conflict) {
			return PutResult{}, gwerr.NewConcurrentRequest(key)
		}
		return PutResult{}, err
	}

	return PutResult{Record: rec, Digest: streamed.Digest}, nil
}

func ensureParentDirectory(ctx context.Context, app *Application, account, parentPath string) error {
	if IsRootPath(parentPath) {
		return nil
	}
	if _, err := app.Metadata.Get(ctx, DirectoryKey(account, parentPath)); err != nil {
		if gwerr.IsNotFound(err) {
			return gwerr.NewResourceNotFound(parentPath)
		}
		return err
	}
	return nil
}

func enforceParentEntryCount(ctx context.Context, app *Application, account, parentPath string) error {
	total := 0
	prefixes := []string{
		ObjectKey(account, parentPath) + "/",
		DirectoryKey(account, parentPath) + "/",
	}
	for _, prefix := range prefixes {
		n, err := app.Metadata.CountPrefix(ctx, prefix, maxDirectoryEntries-total)
		if err != nil {
			return err
		}
		total += n
		if total >= maxDirectoryEntries {
			return gwerr.NewDirectoryLimit(parentPath)
		}
	}
	return nil
}
