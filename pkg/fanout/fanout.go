// Package fanout streams a single object body to every node in a replica set in
// parallel, computing a running MD5 digest alongside the writes. It generalizes the
// teacher's multipart-upload concurrency pattern (N parts of one object, joined with
// a WaitGroup and a mutex-guarded shared result) to N replica sockets of one stream.
package fanout

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/placement"
	"golang.org/x/sync/errgroup"
)

// emptyDigest is the MD5-of-nothing, base64-encoded. Zero-byte objects short-circuit
// to this constant and never open a replica stream.
const emptyDigest = "1B2M2Y8AsgTpgAmY7PhCfg=="

// chunkSize bounds how much of the body is buffered per replica before backpressure
// kicks in.
const chunkSize = 256 * 1024

// chunkQueueDepth is the number of in-flight chunks a replica's channel may buffer
// before the shared reader blocks waiting for it to drain.
const chunkQueueDepth = 4

// ReplicaWriter opens a single upload stream to one storage node and reports the
// digest the node computed once the stream is closed. Implemented by pkg/sharkclient;
// kept as an interface here to avoid a dependency cycle (sharkclient depends on
// placement.Node, not the other way around).
type ReplicaWriter interface {
	// Open begins an upload to node for the given object and declared size, returning
	// a writer that accepts the body in order. Close must return the node's own digest
	// of the bytes it received.
	Open(ctx context.Context, node placement.Node, objectID string, size int64) (ReplicaStream, error)
}

// ReplicaStream is a single in-flight upload to one replica.
type ReplicaStream interface {
	io.Writer
	// Close finalizes the upload and returns the digest the remote node computed.
	Close() (digest string, err error)
	// Abort cancels an in-progress upload, releasing the remote node's resources.
	Abort()
}

// Result describes a completed fan-out.
type Result struct {
	Digest  string
	Chosen  placement.ReplicaSet
	Written int64
}

// Stream writes body to every node across successive candidate sets until one set
// fully succeeds, or returns SharksExhausted once all candidates are tried.
//
// clientDigest, if non-empty, is the client-supplied content hash (base64 MD5); a
// mismatch against the computed digest fails with ChecksumMismatch before the caller
// writes any metadata.
//
// m is variadic and optional (pass none, or a single Metrics) purely so the many
// existing call sites don't all need updating when a sink is wired in; only the
// first value, if any, is used.
func Stream(ctx context.Context, writer ReplicaWriter, candidates []placement.ReplicaSet, body io.Reader, objectID string, size int64, clientDigest string, m ...Metrics) (Result, error) {
	ctx, span := telemetry.StartFanoutSpan(ctx, "stream", objectID, telemetry.Size(size))
	defer span.End()

	var metrics Metrics
	if len(m) > 0 {
		metrics = m[0]
	}

	if size == 0 {
		if clientDigest != "" && clientDigest != emptyDigest {
			return Result{}, gwerr.NewChecksumMismatch(clientDigest, emptyDigest)
		}
		return Result{Digest: emptyDigest}, nil
	}

	start := time.Now()
	buf, err := bufferBody(body, size)
	if err != nil {
		return Result{}, gwerr.Wrap(gwerr.Internal, "fanout: buffer body", err)
	}

	var lastErr error
	for attempt, set := range candidates {
		res, err := streamToSet(ctx, writer, set, buf, objectID, size, attempt, metrics)
		if err == nil {
			if clientDigest != "" && clientDigest != res.Digest {
				mismatchErr := gwerr.NewChecksumMismatch(clientDigest, res.Digest)
				recordStream(metrics, attempt+1, size, start, mismatchErr)
				return Result{}, mismatchErr
			}
			recordStream(metrics, attempt+1, size, start, nil)
			return res, nil
		}
		logger.WarnCtx(ctx, "fanout candidate set failed", logger.Attempt(attempt), logger.Err(err))
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate replica sets offered")
	}
	recordStream(metrics, len(candidates), size, start, lastErr)
	return Result{}, gwerr.Wrap(gwerr.SharksExhausted, fmt.Sprintf("all %d candidate sets exhausted", len(candidates)), lastErr)
}

// bufferBody reads the full body up front so a failed candidate set can be retried
// against a fresh rewind, per the fail-over contract.
func bufferBody(body io.Reader, size int64) ([]byte, error) {
	buf := make([]byte, 0, size)
	w := bytes.NewBuffer(buf)
	if _, err := io.Copy(w, body); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// streamToSet opens one ReplicaStream per node in set, feeds them the body in lockstep
// chunks so a slow replica backpressures the others, and joins on completion.
func streamToSet(ctx context.Context, writer ReplicaWriter, set placement.ReplicaSet, buf []byte, objectID string, size int64, attempt int, m Metrics) (Result, error) {
	ctx, span := telemetry.StartFanoutSpan(ctx, "stream_set", objectID, telemetry.Attempt(attempt))
	defer span.End()
	start := time.Now()

	streams := make([]ReplicaStream, len(set))
	queues := make([]chan []byte, len(set))

	g, gctx := errgroup.WithContext(ctx)

	for i, node := range set {
		i, node := i, node
		queues[i] = make(chan []byte, chunkQueueDepth)
		g.Go(func() error {
			stream, err := writer.Open(gctx, node, objectID, size)
			if err != nil {
				return fmt.Errorf("shark %s: open: %w", node.ID, err)
			}
			streams[i] = stream

			for chunk := range queues[i] {
				if _, err := stream.Write(chunk); err != nil {
					stream.Abort()
					return fmt.Errorf("shark %s: write: %w", node.ID, err)
				}
			}

			digest, err := stream.Close()
			if err != nil {
				return fmt.Errorf("shark %s: close: %w", node.ID, err)
			}
			localDigest := localDigestOf(buf)
			if digest != localDigest {
				return fmt.Errorf("shark %s: digest mismatch: remote=%s local=%s", node.ID, digest, localDigest)
			}
			return nil
		})
	}

	feedErr := feedChunks(gctx, buf, queues)
	for _, q := range queues {
		close(q)
	}

	if err := g.Wait(); err != nil {
		abortAll(streams)
		recordAttempt(m, len(set), int64(len(buf)), start, err)
		return Result{}, err
	}
	if feedErr != nil {
		abortAll(streams)
		recordAttempt(m, len(set), int64(len(buf)), start, feedErr)
		return Result{}, feedErr
	}

	recordAttempt(m, len(set), int64(len(buf)), start, nil)
	return Result{
		Digest:  localDigestOf(buf),
		Chosen:  set,
		Written: int64(len(buf)),
	}, nil
}

// feedChunks splits buf into chunkSize pieces and pushes each onto every queue in
// turn. A full queue blocks the send, which is the backpressure mechanism: the
// slowest replica paces the whole set.
func feedChunks(ctx context.Context, buf []byte, queues []chan []byte) error {
	for off := 0; off < len(buf); off += chunkSize {
		end := off + chunkSize
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[off:end]

		for _, q := range queues {
			select {
			case q <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func abortAll(streams []ReplicaStream) {
	for _, s := range streams {
		if s != nil {
			s.Abort()
		}
	}
}

func localDigestOf(buf []byte) string {
	sum := md5.Sum(buf)
	return base64.StdEncoding.EncodeToString(sum[:])
}
