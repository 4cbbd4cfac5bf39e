package object

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/conditional"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// ReplicaReader opens a byte range of a previously-written object from a storage
// node. Implemented by pkg/sharkclient; kept as a narrow interface here to avoid a
// dependency cycle, mirroring fanout.ReplicaWriter.
type ReplicaReader interface {
	Open(ctx context.Context, node placement.Node, objectID string, rangeStart, rangeEnd int64) (io.ReadCloser, error)
}

// GetRequest is the parsed input to Get.
type GetRequest struct {
	Account string
	Path    string
	// Method is http.MethodGet or http.MethodHead.
	Method string
	// Range is the raw Range header value, "" if absent.
	Range string

	IfMatch           string
	IfNoneMatch       string
	IfModifiedSince   string
	IfUnmodifiedSince string
}

// GetResult describes the outcome of a successful Get.
type GetResult struct {
	NotModified bool
	IsDirectory bool
	Dir         DirectoryRecord
	Record      ObjectRecord
	Body        io.ReadCloser

	HasRange   bool
	RangeStart int64
	RangeEnd   int64 // inclusive
}

// Get resolves the object or directory at path and, for a non-empty object, opens a
// byte stream from one reachable replica (§4.6). HEAD requests follow the same
// resolution without opening a body.
func Get(ctx context.Context, app *Application, req GetRequest) (GetResult, error) {
	path := normalizePath(req.Path)
	ctx, span := telemetry.StartObjectSpan(ctx, "object.get", req.Account, path)
	defer span.End()

	existing, err := loadExisting(ctx, app, req.Account, path)
	if err != nil {
		return GetResult{}, err
	}
	if !existing.exists() {
		return GetResult{}, gwerr.NewResourceNotFound(path)
	}

	resource := conditional.Resource{Etag: existing.etag, ModTime: existing.modTime, Exists: true}
	outcome, err := conditional.Evaluate(req.Method, resource, req.IfMatch, req.IfNoneMatch, req.IfModifiedSince, req.IfUnmodifiedSince)
	if err != nil {
		return GetResult{}, err
	}
	if outcome == conditional.NotModified {
		return GetResult{NotModified: true}, nil
	}

	if existing.kind == existingDirectory {
		return GetResult{IsDirectory: true, Dir: existing.dir}, nil
	}

	rec := existing.obj
	if rec.ContentLength == 0 {
		return GetResult{Record: rec}, nil
	}

	var rangeStart, rangeEnd int64 = 0, rec.ContentLength - 1
	hasRange := false
	if req.Range != "" {
		start, end, err := parseRangeHeader(req.Range, rec.ContentLength)
		if err != nil {
			return GetResult{}, err
		}
		rangeStart, rangeEnd, hasRange = start, end, true
	}

	if req.Method == http.MethodHead {
		return GetResult{Record: rec, HasRange: hasRange, RangeStart: rangeStart, RangeEnd: rangeEnd}, nil
	}

	node, ok := selectReplica(app.View, rec.ReplicaSet)
	if !ok {
		return GetResult{}, gwerr.NewSharksExhausted(len(rec.ReplicaSet))
	}

	body, err := app.Reader.Open(ctx, node, rec.ObjectID, rangeStart, rangeEnd)
	if err != nil {
		return GetResult{}, gwerr.Wrap(gwerr.SharksExhausted, "object: open replica stream", err)
	}

	return GetResult{Record: rec, Body: body, HasRange: hasRange, RangeStart: rangeStart, RangeEnd: rangeEnd}, nil
}

// selectReplica returns the first node in ids (stored order) whose circuit breaker
// is not open, consulting the live placement view rather than the stale snapshot
// recorded on the object at write time.
func selectReplica(view *placement.View, ids []string) (placement.Node, bool) {
	nodes := view.Snapshot()
	byID := make(map[string]placement.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, id := range ids {
		if n, ok := byID[id]; ok && n.Circuit != placement.CircuitOpen {
			return n, true
		}
	}
	return placement.Node{}, false
}

// parseRangeHeader parses a single-range "bytes=a-b" header and validates it against
// length, per §4.6: a range outside [0, length) yields RangeNotSatisfiable.
func parseRangeHeader(header string, length int64) (start, end int64, err error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, gwerr.NewRangeNotSatisfiable(header, length)
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return 0, 0, gwerr.NewRangeNotSatisfiable(header, length)
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, gwerr.NewRangeNotSatisfiable(header, length)
	}

	switch {
	case parts[0] == "" && parts[1] != "":
		// suffix range: last N bytes
		n, perr := strconv.ParseInt(parts[1], 10, 64)
		if perr != nil || n <= 0 {
			return 0, 0, gwerr.NewRangeNotSatisfiable(header, length)
		}
		if n > length {
			n = length
		}
		start = length - n
		end = length - 1
	case parts[0] != "":
		s, perr := strconv.ParseInt(parts[0], 10, 64)
		if perr != nil || s < 0 {
			return 0, 0, gwerr.NewRangeNotSatisfiable(header, length)
		}
		start = s
		if parts[1] == "" {
			end = length - 1
		} else {
			e, perr := strconv.ParseInt(parts[1], 10, 64)
			if perr != nil || e < start {
				return 0, 0, gwerr.NewRangeNotSatisfiable(header, length)
			}
			end = e
		}
	default:
		return 0, 0, gwerr.NewRangeNotSatisfiable(header, length)
	}

	if start < 0 || start >= length || end >= length {
		return 0, 0, gwerr.NewRangeNotSatisfiable(header, length)
	}
	return start, end, nil
}
