package sharkclient

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nimbusstore/gateway/pkg/placement"
)

// breakerPool holds one gobreaker.CircuitBreaker per storage node, created lazily
// the first time a node is seen. gobreaker's own closed/open/half-open state
// machine backs the per-node circuit breaker required by the commit coordinator
// (SPEC §4.8); Node.Circuit is a read-only projection of it for the placement view.
type breakerPool struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	cfg      CircuitBreakerConfig
}

func newBreakerPool(cfg CircuitBreakerConfig) *breakerPool {
	return &breakerPool{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		cfg:      cfg,
	}
}

func (p *breakerPool) get(sharkID string) *gobreaker.CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.breakers[sharkID]; ok {
		return b
	}

	maxFailures := p.cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openTimeout := p.cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}
	halfOpenMax := p.cfg.HalfOpenMaxRequests
	if halfOpenMax == 0 {
		halfOpenMax = 1
	}

	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        sharkID,
		MaxRequests: halfOpenMax,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Only transport-level trouble (timeouts, connection errors, 5xx/429) counts
		// against the breaker; application-level rejections like 404 or a malformed
		// request are the caller's problem, not the node's, per §4.8's "not for
		// application-level 4xx" distinction (shared with the retry policy).
		IsSuccessful: func(err error) bool {
			return err == nil || !isRetryableError(err)
		},
	})
	p.breakers[sharkID] = b
	return b
}

// state translates a gobreaker.State into the placement package's own
// CircuitState enum, which is what the placement view and its Healthy() check
// actually consume.
func (p *breakerPool) state(sharkID string) placement.CircuitState {
	switch p.get(sharkID).State() {
	case gobreaker.StateOpen:
		return placement.CircuitOpen
	case gobreaker.StateHalfOpen:
		return placement.CircuitHalfOpen
	default:
		return placement.CircuitClosed
	}
}

// run executes fn through the node's breaker. A denied call returns gobreaker's
// own ErrOpenState/ErrTooManyRequests unchanged; isBreakerDenied (client.go)
// recognizes them.
func (p *breakerPool) run(sharkID string, fn func() error) error {
	_, err := p.get(sharkID).Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}
