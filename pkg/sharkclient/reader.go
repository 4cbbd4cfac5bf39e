package sharkclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// Reader adapts a Client to object.ReplicaReader. It is a distinct type from
// Client because ReplicaReader's Open has a different signature (range bounds
// instead of a declared size) than fanout.ReplicaWriter/mpu.PartWriter's Open, and
// Go does not allow two methods named Open on the same type.
type Reader struct {
	*Client
}

// NewReader wraps c for use wherever an object.ReplicaReader is required.
func NewReader(c *Client) *Reader {
	return &Reader{Client: c}
}

// Open fetches [rangeStart, rangeEnd] (inclusive) of objectID from node, retrying
// transport-level failures since a GET is naturally idempotent.
func (r *Reader) Open(ctx context.Context, node placement.Node, objectID string, rangeStart, rangeEnd int64) (io.ReadCloser, error) {
	ctx, span := telemetry.StartSharkSpan(ctx, "read", node.ID, telemetry.ContentID(objectID))
	defer span.End()

	readURL := node.BaseURL + "/v1/objects/" + url.PathEscape(objectID)

	var body io.ReadCloser
	start := time.Now()
	err := withRetry(ctx, r.retry, r.metrics, "read", node.ID, func() error {
		return r.breakers.run(node.ID, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, readURL, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", rangeStart, rangeEnd))

			resp, err := r.http.Do(req)
			if err != nil {
				return err
			}
			if resp.StatusCode == http.StatusNotFound {
				resp.Body.Close()
				return ErrNotFound
			}
			if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				resp.Body.Close()
				return &statusCodeError{code: resp.StatusCode, body: string(b)}
			}
			body = resp.Body
			return nil
		})
	})
	observeOperation(r.metrics, "read", node.ID, start, err)
	if err != nil {
		return nil, err
	}
	recordBytes(r.metrics, "read", node.ID, rangeEnd-rangeStart+1)
	return body, nil
}
