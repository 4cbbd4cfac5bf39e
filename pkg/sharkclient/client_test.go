package sharkclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusstore/gateway/pkg/config"
	"github.com/nimbusstore/gateway/pkg/placement"
)

func testNode(url string) placement.Node {
	return placement.Node{ID: "shark-1", BaseURL: url}
}

func TestCheckHealthReportsUtilization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(healthResponse{AvailableBytes: 1024, UtilizationPct: 42})
	}))
	defer srv.Close()

	c := NewClient(Config{}, nil)
	updated, err := c.CheckHealth(context.Background(), testNode(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), updated.AvailableBytes)
	assert.Equal(t, 42, updated.UtilizationPct)
	assert.Equal(t, placement.CircuitClosed, updated.Circuit)
}

func TestFinalizeReturnsDigest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mpu/v1/commit/upload-1", r.URL.Path)
		var body finalizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1, body.Version)
		assert.Equal(t, "acct", body.Account)
		assert.Equal(t, "obj-1", body.ObjectID)
		assert.Equal(t, []string{"p0", "p1"}, body.Parts)
		w.Header().Set(computedDigestHeader, "abc123")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{}, nil)
	digest, err := c.Finalize(context.Background(), testNode(srv.URL), "upload-1", "acct", "obj-1", 10, []string{"p0", "p1"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", digest)
}

func TestOpenStreamsBodyAndReturnsDigest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/objects/obj-2", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Write-Id"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(body))
		_ = json.NewEncoder(w).Encode(writeResponse{Digest: "digest-xyz", BytesWritten: int64(len(body))})
	}))
	defer srv.Close()

	c := NewClient(Config{}, nil)
	stream, err := c.Open(context.Background(), testNode(srv.URL), "obj-2", 11)
	require.NoError(t, err)

	n, err := stream.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	digest, err := stream.Close()
	require.NoError(t, err)
	assert.Equal(t, "digest-xyz", digest)
}

func TestReaderHonorsRangeHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=2-5", r.Header.Get("Range"))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("llo "))
	}))
	defer srv.Close()

	reader := NewReader(NewClient(Config{}, nil))
	body, err := reader.Open(context.Background(), testNode(srv.URL), "obj-3", 2, 5)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "llo ", string(data))
}

func TestReaderReturnsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reader := NewReader(NewClient(Config{Retry: RetryConfig{MaxAttempts: 1}}, nil))
	_, err := reader.Open(context.Background(), testNode(srv.URL), "missing", 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{
		Retry:          RetryConfig{MaxAttempts: 1},
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute},
	}, nil)
	node := testNode(srv.URL)

	for i := 0; i < 2; i++ {
		_, err := c.CheckHealth(context.Background(), node)
		require.Error(t, err)
	}

	updated, err := c.CheckHealth(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, placement.CircuitOpen, updated.Circuit)

	callsBefore := atomic.LoadInt32(&calls)
	_, _ = c.CheckHealth(context.Background(), node)
	assert.Equal(t, callsBefore, atomic.LoadInt32(&calls), "breaker-open check must not dial the node")
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set(computedDigestHeader, "ok")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{
		Retry: RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	}, nil)
	digest, err := c.Finalize(context.Background(), testNode(srv.URL), "upload-4", "acct", "obj-4", 1, []string{"p0"})
	require.NoError(t, err)
	assert.Equal(t, "ok", digest)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestIsRetryableErrorClassifiesStatusCodes(t *testing.T) {
	assert.True(t, isRetryableError(&statusCodeError{code: http.StatusServiceUnavailable}))
	assert.True(t, isRetryableError(&statusCodeError{code: http.StatusTooManyRequests}))
	assert.False(t, isRetryableError(&statusCodeError{code: http.StatusBadRequest}))
	assert.False(t, isRetryableError(context.Canceled))
}

func TestConfigFromMapsRetryAndBreakerFields(t *testing.T) {
	cfg := ConfigFrom(config.SharkClientConfig{
		Retry:          config.ShardRetryConfig{MaxAttempts: 7},
		CircuitBreaker: config.ShardCircuitBreakerConfig{MaxFailures: 9},
	})
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, uint32(9), cfg.CircuitBreaker.MaxFailures)
}
