package auth

import "github.com/nimbusstore/gateway/pkg/config"

// ConfigFrom adapts the process-wide configuration's auth section into the
// Config NewValidator expects, keeping pkg/config free of any auth import.
func ConfigFrom(cfg config.AuthConfig) Config {
	return Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	}
}
