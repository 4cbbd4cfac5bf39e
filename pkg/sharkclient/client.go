package sharkclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/placement"
)

// CircuitBreakerConfig tunes the per-node circuit breaker (§4.8: "closed -> open
// after N consecutive failures -> half-open probe after a cooldown").
type CircuitBreakerConfig struct {
	MaxFailures          uint32
	OpenTimeout          time.Duration
	HalfOpenMaxRequests  uint32
}

// Config configures a Client's transport, retry policy, and circuit breaker. It is
// built from config.SharkClientConfig by the process registry.
type Config struct {
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	RequestTimeout        time.Duration
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	CircuitBreaker        CircuitBreakerConfig
	Retry                 RetryConfig
}

// Client is a pooled HTTP client shared across every storage node, with per-node
// circuit breaking, bounded jittered retry, and optional metrics. It satisfies
// placement.HealthChecker and mpu.FinalizeClient directly, and
// fanout.ReplicaWriter/mpu.PartWriter via its own Open method (pkg/sharkclient/
// stream.go); object.ReplicaReader is satisfied by the separate Reader type
// (pkg/sharkclient/reader.go) since its Open signature differs.
type Client struct {
	http           *http.Client
	breakers       *breakerPool
	retry          RetryConfig
	requestTimeout time.Duration
	metrics        Metrics
}

// NewClient builds a Client. Zero-valued Config fields fall back to conservative
// defaults, the same zero-value-replaced-by-default convention pkg/config uses.
func NewClient(cfg Config, metrics Metrics) *Client {
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}
	responseHeaderTimeout := cfg.ResponseHeaderTimeout
	if responseHeaderTimeout == 0 {
		responseHeaderTimeout = 10 * time.Second
	}
	maxIdle := cfg.MaxIdleConnsPerHost
	if maxIdle == 0 {
		maxIdle = 16
	}
	idleTimeout := cfg.IdleConnTimeout
	if idleTimeout == 0 {
		idleTimeout = 90 * time.Second
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 30 * time.Second
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: dialTimeout}).DialContext,
		MaxIdleConnsPerHost:   maxIdle,
		IdleConnTimeout:       idleTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
	}

	return &Client{
		http:           &http.Client{Transport: transport},
		breakers:       newBreakerPool(cfg.CircuitBreaker),
		retry:          cfg.Retry,
		requestTimeout: requestTimeout,
		metrics:        metrics,
	}
}

type healthResponse struct {
	AvailableBytes int64 `json:"available_bytes"`
	UtilizationPct int   `json:"utilization_pct"`
}

// CheckHealth polls a node's /v1/health endpoint, implementing
// placement.HealthChecker. A breaker-open node is reported back as CircuitOpen
// with no error, so the placement view still records the degraded state instead
// of silently keeping a stale snapshot (see isBreakerDenied below).
func (c *Client) CheckHealth(ctx context.Context, node placement.Node) (placement.Node, error) {
	ctx, span := telemetry.StartSharkSpan(ctx, "health", node.ID)
	defer span.End()

	start := time.Now()
	var body healthResponse
	err := c.breakers.run(node.ID, func() error {
		return c.getJSON(ctx, node.BaseURL+"/v1/health", &body)
	})
	observeOperation(c.metrics, "health", node.ID, start, err)

	updated := node
	updated.Circuit = c.breakers.state(node.ID)
	recordCircuitState(c.metrics, node.ID, circuitStateName(updated.Circuit))

	if err != nil {
		if isBreakerDenied(err) {
			return updated, nil
		}
		return updated, err
	}
	updated.AvailableBytes = body.AvailableBytes
	updated.UtilizationPct = body.UtilizationPct
	return updated, nil
}

// computedDigestHeader is the response header the finalize RPC carries the
// agreed-upon content digest in, rather than a JSON body field.
const computedDigestHeader = "x-joyent-computed-content-md5"

// finalizeRequestVersion is the wire version stamped on every finalize request
// body, so a storage node can reject an unsupported shape outright.
const finalizeRequestVersion = 1

type finalizeRequest struct {
	Version  int      `json:"version"`
	NBytes   int64    `json:"nbytes"`
	Account  string   `json:"account"`
	ObjectID string   `json:"objectId"`
	Parts    []string `json:"parts"`
}

// Finalize invokes the storage node's commit RPC, implementing
// mpu.FinalizeClient.
func (c *Client) Finalize(ctx context.Context, node placement.Node, uploadID, account, objectID string, nbytes int64, parts []string) (string, error) {
	ctx, span := telemetry.StartSharkSpan(ctx, "finalize", node.ID, telemetry.ContentID(objectID), telemetry.Size(nbytes))
	defer span.End()

	reqBody, err := json.Marshal(finalizeRequest{
		Version:  finalizeRequestVersion,
		NBytes:   nbytes,
		Account:  account,
		ObjectID: objectID,
		Parts:    parts,
	})
	if err != nil {
		return "", err
	}

	start := time.Now()
	var digest string
	finalizeURL := node.BaseURL + "/mpu/v1/commit/" + url.PathEscape(uploadID)
	err = withRetry(ctx, c.retry, c.metrics, "finalize", node.ID, func() error {
		return c.breakers.run(node.ID, func() error {
			d, err := c.postForDigest(ctx, finalizeURL, reqBody)
			if err != nil {
				return err
			}
			digest = d
			return nil
		})
	})
	observeOperation(c.metrics, "finalize", node.ID, start, err)
	if err != nil {
		return "", err
	}
	return digest, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusCodeError{code: resp.StatusCode, body: string(body)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, rawURL string, body []byte, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusCodeError{code: resp.StatusCode, body: string(respBody)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// postForDigest posts body and returns the digest carried on computedDigestHeader,
// the finalize RPC's response shape (the commit response has no JSON body field
// for it).
func (c *Client) postForDigest(ctx context.Context, rawURL string, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &statusCodeError{code: resp.StatusCode, body: string(respBody)}
	}
	digest := resp.Header.Get(computedDigestHeader)
	if digest == "" {
		return "", errors.New("sharkclient: finalize response missing " + computedDigestHeader + " header")
	}
	return digest, nil
}

func circuitStateName(s placement.CircuitState) string {
	switch s {
	case placement.CircuitOpen:
		return "open"
	case placement.CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

func isBreakerDenied(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
