package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/mpu"
	"github.com/nimbusstore/gateway/pkg/object"
)

// declaredSizeHeaderKey is the headers-map key MPU-create accepts for the
// eventual object's total size (§6: "content-length if present must be a
// non-negative number"). It rides inside the JSON headers map rather than the
// HTTP Content-Length header, since that header already describes the JSON
// request body's own size.
const declaredSizeHeaderKey = "content-length"

// MPUHandler serves the multipart-upload routes (§6), translating between HTTP
// and pkg/mpu's request/result types.
type MPUHandler struct {
	app *mpu.Application
}

// NewMPUHandler builds an MPUHandler backed by app.
func NewMPUHandler(app *mpu.Application) *MPUHandler {
	return &MPUHandler{app: app}
}

type createUploadBody struct {
	ObjectPath string            `json:"objectPath"`
	Headers    map[string]string `json:"headers,omitempty"`
}

type createUploadResponse struct {
	ID             string `json:"id"`
	PartsDirectory string `json:"partsDirectory"`
}

// Create handles POST /:account/uploads.
func (h *MPUHandler) Create(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	identity := identityOf(r)

	var body createUploadBody
	if !decodeJSONBody(w, r, &body) {
		return
	}
	if len(body.ObjectPath) == 0 {
		gwerr.WriteProblem(w, gwerr.NewBadRequest("objectPath is required"))
		return
	}
	declaredSize, hasDeclaredSize, err := declaredSizeFromHeaders(body.Headers)
	if err != nil {
		gwerr.WriteProblem(w, gwerr.NewBadRequest("headers.content-length must be a non-negative number"))
		return
	}
	for k := range body.Headers {
		if strings.HasPrefix(strings.ToLower(k), "if-") {
			gwerr.WriteProblem(w, gwerr.NewBadRequest("headers may not contain conditional if-* keys"))
			return
		}
	}

	durability, err := durabilityLevel(r)
	if err != nil {
		gwerr.WriteProblem(w, gwerr.NewBadRequest("malformed Durability-Level header"))
		return
	}

	req := mpu.CreateRequest{
		Account:         account,
		TargetPath:      body.ObjectPath,
		TargetKey:       object.ObjectKey(account, body.ObjectPath),
		Headers:         body.Headers,
		DeclaredSize:    declaredSize,
		HasDeclaredSize: hasDeclaredSize,
		Copies:          durability,
		Operator:        identity.Operator,
		Subuser:         identity.Subuser,
	}

	result, err := mpu.Create(r.Context(), h.app, req)
	if err != nil {
		writeObjectError(r, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createUploadResponse{
		ID:             result.UploadID,
		PartsDirectory: "/" + result.UploadPath,
	})
}

// declaredSizeFromHeaders extracts and removes the content-length entry from a
// create-upload headers map, since it conveys the declared total object size
// rather than an arbitrary custom header to pass through.
func declaredSizeFromHeaders(headers map[string]string) (int64, bool, error) {
	raw, ok := headers[declaredSizeHeaderKey]
	if !ok {
		return 0, false, nil
	}
	delete(headers, declaredSizeHeaderKey)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false, strconv.ErrSyntax
	}
	return n, true, nil
}

// UploadPart handles PUT /:account/uploads/:prefix/:id/:partNum.
func (h *MPUHandler) UploadPart(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	uploadID := chi.URLParam(r, "id")

	index, err := strconv.Atoi(chi.URLParam(r, "partNum"))
	if err != nil {
		gwerr.WriteProblem(w, gwerr.NewBadRequest("part number must be an integer"))
		return
	}

	length, hasLength := contentLength(r)
	if !hasLength {
		gwerr.WriteProblem(w, gwerr.NewBadRequest("Content-Length is required for upload-part"))
		return
	}

	result, err := mpu.UploadPart(r.Context(), h.app, mpu.UploadPartRequest{
		Account:       account,
		UploadID:      uploadID,
		Index:         index,
		Body:          r.Body,
		ContentLength: length,
		ClientDigest:  r.Header.Get("Content-MD5"),
	})
	if err != nil {
		writeObjectError(r, w, err)
		return
	}

	w.Header().Set("Etag", result.Etag)
	w.Header().Set("Content-Length", strconv.FormatInt(result.ContentLength, 10))
	w.WriteHeader(http.StatusNoContent)
}

// Abort handles POST /:account/uploads/:prefix/:id/abort.
func (h *MPUHandler) Abort(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	uploadID := chi.URLParam(r, "id")
	identity := identityOf(r)

	err := mpu.Abort(r.Context(), h.app, mpu.AbortRequest{
		Account:  account,
		UploadID: uploadID,
		Subuser:  identity.Subuser,
	})
	if err != nil {
		writeObjectError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commitUploadBody struct {
	Parts []string `json:"parts"`
}

// Commit handles POST /:account/uploads/:prefix/:id/commit.
func (h *MPUHandler) Commit(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	uploadID := chi.URLParam(r, "id")

	var body commitUploadBody
	if !decodeJSONBody(w, r, &body) {
		return
	}

	result, err := mpu.Commit(r.Context(), h.app, mpu.CommitRequest{
		Account:      account,
		UploadID:     uploadID,
		Parts:        body.Parts,
		ClientDigest: r.Header.Get("Content-MD5"),
	})
	if err != nil {
		writeObjectError(r, w, err)
		return
	}

	w.Header().Set("Location", "/"+account+"/"+result.Record.Path)
	w.Header().Set("Etag", result.Record.Etag)
	w.WriteHeader(http.StatusCreated)
}

type uploadStateResponse struct {
	ID             string `json:"id"`
	State          string `json:"state"`
	FinalizingType string `json:"finalizingType,omitempty"`
	TargetPath     string `json:"targetPath"`
}

// State handles GET /:account/uploads/:prefix/:id/state.
func (h *MPUHandler) State(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	uploadID := chi.URLParam(r, "id")

	result, err := mpu.GetState(r.Context(), h.app, mpu.StateRequest{Account: account, UploadID: uploadID})
	if err != nil {
		writeObjectError(r, w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadStateResponse{
		ID:             result.UploadID,
		State:          result.State.String(),
		FinalizingType: result.FinalizingType.String(),
		TargetPath:     result.TargetPath,
	})
}

// LegacyRedirect handles GET/HEAD/POST /:account/uploads/:id[/:partNum]: it looks
// the upload up directly (the metadata key has no prefix-directory component) and
// redirects to its true sharded path, rather than guessing a prefix length and
// probing each candidate.
func (h *MPUHandler) LegacyRedirect(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	uploadID := chi.URLParam(r, "id")

	result, err := mpu.GetState(r.Context(), h.app, mpu.StateRequest{Account: account, UploadID: uploadID})
	if err != nil {
		writeObjectError(r, w, err)
		return
	}

	location := "/" + result.UploadPath
	if partNum := chi.URLParam(r, "partNum"); partNum != "" {
		location += "/" + partNum
	}
	http.Redirect(w, r, location, http.StatusMovedPermanently)
}
