package sharkclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// ErrNotFound is returned by Read/Finalize when the shark reports no such blob.
var ErrNotFound = errors.New("sharkclient: object not found")

// isRetryableError reports whether err is worth a transport-level retry: timeouts,
// connection resets, and 5xx/429 responses. Context cancellation and 4xx
// application errors are never retryable, mirroring the teacher's
// isRetryableError (pkg/content/store/s3/s3_read.go).
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *statusCodeError
	if errors.As(err, &statusErr) {
		return statusErr.code >= 500 || statusErr.code == http.StatusTooManyRequests
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	msg := err.Error()
	for _, s := range []string{"connection reset", "i/o timeout", "EOF", "connection refused", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// statusCodeError wraps a non-2xx shark response so callers can distinguish
// retryable transport trouble from a definitive application-level rejection.
type statusCodeError struct {
	code int
	body string
}

func (e *statusCodeError) Error() string {
	return "sharkclient: unexpected status " + http.StatusText(e.code) + ": " + e.body
}

func isNotFoundStatus(code int) bool {
	return code == http.StatusNotFound
}
