// Package conditional evaluates HTTP conditional-request preconditions
// (If-Match, If-None-Match, If-Modified-Since, If-Unmodified-Since) against a
// resource's current etag and modification time. There is no teacher analog for this
// concern (the teacher's protocols carry no HTTP conditional headers), so it is built
// directly from RFC 7232 semantics using only the standard library.
package conditional

import (
	"net/http"
	"strings"
	"time"

	"github.com/nimbusstore/gateway/pkg/gwerr"
)

// Outcome is the result of evaluating a request's preconditions against a resource.
type Outcome int

const (
	// Proceed means no precondition applies, or all applicable preconditions passed.
	Proceed Outcome = iota
	// NotModified means a safe-method request's If-None-Match/If-Modified-Since
	// matched the current representation; the caller should return 304.
	NotModified
)

// Resource is the minimal state a precondition check needs about the current entity.
// Exists is false when evaluating a precondition against a resource that does not
// exist yet (e.g. a PUT that should only create, never overwrite).
type Resource struct {
	Etag    string
	ModTime time.Time
	Exists  bool
}

// Evaluate applies RFC 7232 precondition rules for method against current, given the
// header values from the incoming request (each empty string if absent). On a failed
// precondition it returns a gwerr of code PreconditionFailed; malformed timestamps
// return BadRequest.
func Evaluate(method string, current Resource, ifMatch, ifNoneMatch, ifModifiedSince, ifUnmodifiedSince string) (Outcome, error) {
	safe := method == http.MethodGet || method == http.MethodHead

	if ifMatch != "" {
		if !matchesIfMatch(ifMatch, current) {
			return Proceed, gwerr.NewPreconditionFailed("If-Match")
		}
	}

	if ifUnmodifiedSince != "" {
		t, err := parseHTTPDate(ifUnmodifiedSince)
		if err != nil {
			return Proceed, gwerr.NewBadRequest("malformed If-Unmodified-Since header")
		}
		if current.Exists && current.ModTime.After(t) {
			return Proceed, gwerr.NewPreconditionFailed("If-Unmodified-Since")
		}
	}

	if ifNoneMatch != "" {
		if matchesIfNoneMatch(ifNoneMatch, current) {
			if safe {
				return NotModified, nil
			}
			return Proceed, gwerr.NewPreconditionFailed("If-None-Match")
		}
	}

	if ifModifiedSince != "" && ifNoneMatch == "" {
		t, err := parseHTTPDate(ifModifiedSince)
		if err != nil {
			return Proceed, gwerr.NewBadRequest("malformed If-Modified-Since header")
		}
		if safe && current.Exists && !current.ModTime.After(t) {
			return NotModified, nil
		}
	}

	return Proceed, nil
}

// matchesIfMatch reports whether the current resource satisfies an If-Match header:
// the wildcard matches any extant resource, otherwise any listed etag must strongly
// equal the current one.
func matchesIfMatch(header string, current Resource) bool {
	if !current.Exists {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	for _, tag := range splitEtagList(header) {
		if isWeak(tag) {
			// Weak validators never satisfy If-Match's strong comparison.
			continue
		}
		if unquote(tag) == current.Etag {
			return true
		}
	}
	return false
}

// matchesIfNoneMatch reports whether the current resource matches an If-None-Match
// header, using weak comparison (the etag value alone, ignoring the W/ marker).
func matchesIfNoneMatch(header string, current Resource) bool {
	if !current.Exists {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	for _, tag := range splitEtagList(header) {
		if unquote(tag) == current.Etag {
			return true
		}
	}
	return false
}

func splitEtagList(header string) []string {
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isWeak(tag string) bool {
	return strings.HasPrefix(tag, "W/")
}

func unquote(tag string) string {
	tag = strings.TrimPrefix(tag, "W/")
	tag = strings.TrimSpace(tag)
	return strings.Trim(tag, `"`)
}

func parseHTTPDate(value string) (time.Time, error) {
	return http.ParseTime(value)
}
