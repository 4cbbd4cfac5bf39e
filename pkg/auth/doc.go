// Package auth implements the gateway's bearer-token authorizer: validating an
// incoming JWT's signature, expiry, and issuer, then enforcing that its
// subject names the account the request addresses.
//
// Tokens are HMAC-signed (golang-jwt/jwt/v5) against a shared secret
// (config.AuthConfig.JWTSecret) rather than issued by a login endpoint on
// gatewayd itself — nimbusgwctl mints bootstrap tokens for an account against
// the same secret (Mint), mirroring how the token is later verified here.
package auth
