// Package api wires the chi router, middleware chain and HTTP handlers for the
// gateway's external interface (§6), mapping each route 1:1 onto an
// pkg/object or pkg/mpu operation.
package api

import (
	"net/http"
	"strconv"
	"strings"
)

// durabilityLevel reads the requested replica count from Durability-Level, falling
// back to its lowercase alias x-durability-level. 0 means "unspecified"; the
// downstream planner supplies the configured default.
func durabilityLevel(r *http.Request) (int, error) {
	raw := r.Header.Get("Durability-Level")
	if raw == "" {
		raw = r.Header.Get("X-Durability-Level")
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// maxContentLength reads Max-Content-Length, 0 meaning "use the configured default".
func maxContentLength(r *http.Request) (int64, error) {
	raw := r.Header.Get("Max-Content-Length")
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// contentLength reports the declared request body size and whether it was present
// at all; a chunked-encoded body has no usable Content-Length and is treated the
// same as an absent header (§4.5: "a missing declared size is always valid").
func contentLength(r *http.Request) (int64, bool) {
	if r.ContentLength < 0 {
		return -1, false
	}
	return r.ContentLength, true
}

// customHeaderPrefix namespaces client-supplied metadata headers, passed through
// verbatim on both object and directory records.
const customHeaderPrefix = "m-"

// customHeaders extracts every m-* request header, lowercasing keys and stripping
// the prefix so callers store only the suffix (e.g. "m-owner" -> "owner").
func customHeaders(r *http.Request) map[string]string {
	out := make(map[string]string)
	for key, values := range r.Header {
		lower := strings.ToLower(key)
		if !strings.HasPrefix(lower, customHeaderPrefix) || len(values) == 0 {
			continue
		}
		out[strings.TrimPrefix(lower, customHeaderPrefix)] = values[0]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
