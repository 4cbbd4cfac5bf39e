package sharkclient

import "github.com/nimbusstore/gateway/pkg/config"

// ConfigFrom adapts the process-wide configuration's shark-client section into
// the Config NewClient expects, keeping pkg/config free of any sharkclient import.
func ConfigFrom(cfg config.SharkClientConfig) Config {
	return Config{
		DialTimeout:           cfg.DialTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		RequestTimeout:        cfg.RequestTimeout,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		Retry: RetryConfig{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:         cfg.CircuitBreaker.MaxFailures,
			OpenTimeout:         cfg.CircuitBreaker.OpenTimeout,
			HalfOpenMaxRequests: cfg.CircuitBreaker.HalfOpenMaxRequests,
		},
	}
}
