package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/auth"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/object"
)

// ObjectHandler serves the object/directory PUT, GET, HEAD and DELETE routes
// (§6), translating between HTTP and pkg/object's request/result types.
type ObjectHandler struct {
	app *object.Application
}

// NewObjectHandler builds an ObjectHandler backed by app.
func NewObjectHandler(app *object.Application) *ObjectHandler {
	return &ObjectHandler{app: app}
}

func urlPath(r *http.Request) string {
	return chi.URLParam(r, "*")
}

func identityOf(r *http.Request) auth.Identity {
	if id, ok := auth.GetIdentity(r.Context()); ok {
		return *id
	}
	return auth.Identity{}
}

// Put handles PUT /:account/:path.
func (h *ObjectHandler) Put(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	path := urlPath(r)
	identity := identityOf(r)

	durability, err := durabilityLevel(r)
	if err != nil {
		gwerr.WriteProblem(w, gwerr.NewBadRequest("malformed Durability-Level header"))
		return
	}
	maxLen, err := maxContentLength(r)
	if err != nil {
		gwerr.WriteProblem(w, gwerr.NewBadRequest("malformed Max-Content-Length header"))
		return
	}
	length, hasLength := contentLength(r)

	req := object.PutRequest{
		Account:            account,
		Path:               path,
		Body:               r.Body,
		ContentLength:      length,
		MaxContentLength:   maxLen,
		Copies:             durability,
		Operator:           identity.Operator,
		ContentType:        r.Header.Get("Content-Type"),
		Headers:            customHeaders(r),
		ClientDigest:       r.Header.Get("Content-MD5"),
		HasContentLength:   hasLength,
		HasContentMD5:      r.Header.Get("Content-MD5") != "",
		HasDurabilityLevel: r.Header.Get("Durability-Level") != "" || r.Header.Get("X-Durability-Level") != "",
		IfMatch:            r.Header.Get("If-Match"),
		IfNoneMatch:        r.Header.Get("If-None-Match"),
		IfModifiedSince:    r.Header.Get("If-Modified-Since"),
		IfUnmodifiedSince:  r.Header.Get("If-Unmodified-Since"),
	}

	result, err := object.Put(r.Context(), h.app, req)
	if err != nil {
		writeObjectError(r, w, err)
		return
	}

	if result.IsDirectory {
		w.Header().Set("Last-Modified", time.UnixMilli(result.Dir.ModifiedAtMs).UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Etag", result.Record.Etag)
	w.Header().Set("Last-Modified", time.UnixMilli(result.Record.ModifiedAtMs).UTC().Format(http.TimeFormat))
	w.Header().Set("Computed-MD5", result.Digest)
	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /:account/:path.
func (h *ObjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, http.MethodGet)
}

// Head handles HEAD /:account/:path.
func (h *ObjectHandler) Head(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, http.MethodHead)
}

func (h *ObjectHandler) get(w http.ResponseWriter, r *http.Request, method string) {
	account := chi.URLParam(r, "account")
	path := urlPath(r)

	req := object.GetRequest{
		Account:           account,
		Path:              path,
		Method:            method,
		Range:             r.Header.Get("Range"),
		IfMatch:           r.Header.Get("If-Match"),
		IfNoneMatch:       r.Header.Get("If-None-Match"),
		IfModifiedSince:   r.Header.Get("If-Modified-Since"),
		IfUnmodifiedSince: r.Header.Get("If-Unmodified-Since"),
	}

	result, err := object.Get(r.Context(), h.app, req)
	if err != nil {
		writeObjectError(r, w, err)
		return
	}

	if result.NotModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if result.IsDirectory {
		w.Header().Set("Content-Type", "application/directory")
		w.Header().Set("Last-Modified", time.UnixMilli(result.Dir.ModifiedAtMs).UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		return
	}

	rec := result.Record
	w.Header().Set("Etag", rec.Etag)
	w.Header().Set("Last-Modified", time.UnixMilli(rec.ModifiedAtMs).UTC().Format(http.TimeFormat))
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}

	status := http.StatusOK
	if result.HasRange {
		w.Header().Set("Content-Range", contentRangeHeader(result.RangeStart, result.RangeEnd, rec.ContentLength))
		w.Header().Set("Content-Length", strconv.FormatInt(result.RangeEnd-result.RangeStart+1, 10))
		status = http.StatusPartialContent
	} else {
		w.Header().Set("Content-Length", strconv.FormatInt(rec.ContentLength, 10))
	}

	w.WriteHeader(status)
	if method == http.MethodHead || result.Body == nil {
		return
	}
	defer result.Body.Close()
	if _, err := io.Copy(w, result.Body); err != nil {
		logger.WarnCtx(r.Context(), "object get: error streaming response body", logger.Err(err))
	}
}

// Delete handles DELETE /:account/:path.
func (h *ObjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	path := urlPath(r)

	if err := object.Delete(r.Context(), h.app, object.DeleteRequest{Account: account, Path: path}); err != nil {
		writeObjectError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func contentRangeHeader(start, end, size int64) string {
	return "bytes " + strconv.FormatInt(start, 10) + "-" + strconv.FormatInt(end, 10) + "/" + strconv.FormatInt(size, 10)
}

// writeObjectError converts a handler-level error into the RFC 7807 problem
// response and records it on the active span, per §7's propagation policy: every
// error is logged at the HTTP boundary and attached to the request's trace.
func writeObjectError(r *http.Request, w http.ResponseWriter, err error) {
	telemetry.RecordError(r.Context(), err)
	var gwErr *gwerr.Error
	if errors.As(err, &gwErr) {
		logger.WarnCtx(r.Context(), "request failed", logger.ErrorCode(gwErr.Code.String()), logger.Err(err))
	} else {
		logger.ErrorCtx(r.Context(), "request failed with unclassified error", logger.Err(err))
	}
	gwerr.WriteProblem(w, err)
}
