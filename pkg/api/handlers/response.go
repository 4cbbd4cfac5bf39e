package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/pkg/gwerr"
)

// writeJSON writes a JSON response with the given status code, encoding to a
// buffer first so a marshal failure can still produce a well-formed error body
// instead of a half-written response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		gwerr.WriteProblem(w, gwerr.NewInternal("failed to encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// decodeJSONBody decodes r's body into v, writing a BadRequest problem response
// and returning false on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		gwerr.WriteProblem(w, gwerr.NewBadRequest("malformed JSON body"))
		return false
	}
	return true
}
