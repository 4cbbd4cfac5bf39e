package sharkclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/fanout"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// errAborted signals the pipe was torn down by Abort rather than a write error.
var errAborted = errors.New("sharkclient: upload aborted")

type writeResponse struct {
	Digest       string `json:"digest"`
	BytesWritten int64  `json:"bytes_written"`
}

// Open begins a streamed upload to node for objectID, implementing both
// fanout.ReplicaWriter and mpu.PartWriter (structurally identical signatures).
// Circuit-gated: a node whose breaker is open fails fast without dialing.
// Streaming writes are not retried transparently once bytes have started
// flowing — a partial write can't be safely replayed through an opaque
// io.Writer — so a failed Open/Write surfaces immediately rather than looping
// through withRetry; the caller (pkg/fanout) fails the whole replica set when any
// one replica fails and retries the write against its next candidate set.
func (c *Client) Open(ctx context.Context, node placement.Node, objectID string, size int64) (fanout.ReplicaStream, error) {
	ctx, span := telemetry.StartSharkSpan(ctx, "upload", node.ID, telemetry.ContentID(objectID), telemetry.Size(size))

	if c.breakers.state(node.ID) == placement.CircuitOpen {
		span.End()
		return nil, gobreakerFastFail(node.ID)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	writeURL := node.BaseURL + "/v1/objects/" + url.PathEscape(objectID)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, writeURL, pr)
	if err != nil {
		cancel()
		span.End()
		return nil, err
	}
	req.Header.Set("X-Write-Id", uuid.NewString())
	req.Header.Set("Content-Type", "application/octet-stream")
	if size > 0 {
		req.ContentLength = size
	}

	s := &httpReplicaStream{
		client: c,
		node:   node,
		pw:     pw,
		cancel: cancel,
		done:   make(chan struct{}),
		start:  time.Now(),
		span:   span,
	}

	go s.run(req)
	return s, nil
}

type httpReplicaStream struct {
	client *Client
	node   placement.Node
	pw     *io.PipeWriter
	cancel context.CancelFunc
	done   chan struct{}
	start  time.Time
	span   trace.Span

	written int64
	resp    writeResponse
	doneErr error
}

// run executes the streamed PUT against the breaker and records the result once
// the caller closes or aborts the pipe.
func (s *httpReplicaStream) run(req *http.Request) {
	defer close(s.done)

	err := s.client.breakers.run(s.node.ID, func() error {
		resp, doErr := s.client.http.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode/100 != 2 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &statusCodeError{code: resp.StatusCode, body: string(body)}
		}
		return json.NewDecoder(resp.Body).Decode(&s.resp)
	})
	s.doneErr = err
}

func (s *httpReplicaStream) Write(p []byte) (int, error) {
	n, err := s.pw.Write(p)
	s.written += int64(n)
	return n, err
}

// Close finalizes the upload and returns the shark's reported digest.
func (s *httpReplicaStream) Close() (string, error) {
	_ = s.pw.Close()
	<-s.done
	s.cancel()
	s.span.End()

	observeOperation(s.client.metrics, "upload", s.node.ID, s.start, s.doneErr)
	if s.doneErr == nil {
		recordBytes(s.client.metrics, "upload", s.node.ID, s.written)
	}
	return s.resp.Digest, s.doneErr
}

// Abort tears down the in-flight request without waiting for a server response.
func (s *httpReplicaStream) Abort() {
	_ = s.pw.CloseWithError(errAborted)
	s.cancel()
	<-s.done
	s.span.End()
}

func gobreakerFastFail(sharkID string) error {
	return &statusCodeError{code: http.StatusServiceUnavailable, body: "circuit open for " + sharkID}
}
