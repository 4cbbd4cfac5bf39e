package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors for token generation and validation.
var (
	ErrInvalidToken        = errors.New("auth: invalid token")
	ErrExpiredToken        = errors.New("auth: token has expired")
	ErrInvalidSecretLength = errors.New("auth: jwt secret must be at least 32 characters")
	ErrSubjectMismatch     = errors.New("auth: token subject does not match requested account")
)

// Claims is the JWT payload the gateway issues and verifies. Subject is
// always the account id a token authorizes; there is no separate
// username/account distinction since the gateway has no notion of individual
// users, only accounts.
type Claims struct {
	jwt.RegisteredClaims

	// Operator grants the account the higher max_operator_utilization_pct
	// placement threshold (§4.1). Set only by the admin CLI at mint time.
	Operator bool `json:"operator,omitempty"`

	// Subuser marks the account as forbidden from the top-level MPU-create and
	// MPU-abort operations (§4.7).
	Subuser bool `json:"subuser,omitempty"`
}

// Account returns the account id this token authorizes, i.e. its subject.
func (c *Claims) Account() string {
	return c.Subject
}

// Identity is what Authorize attaches to a request's context once a token
// has been validated.
type Identity struct {
	Account  string
	Operator bool
	Subuser  bool
}

// Config configures HMAC-signed token minting and verification.
type Config struct {
	// Secret is the HMAC signing key. Must be at least 32 characters.
	Secret string

	// Issuer, if set, is both stamped on minted tokens and required to match
	// on verification.
	Issuer string

	// TokenDuration is how long a minted token remains valid. Default 1 hour.
	TokenDuration time.Duration
}

// Validator verifies bearer tokens against a shared HMAC secret.
type Validator struct {
	cfg Config
}

// NewValidator builds a Validator. cfg.Secret must be at least 32 characters.
func NewValidator(cfg Config) (*Validator, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = time.Hour
	}
	return &Validator{cfg: cfg}, nil
}

// Validate parses and verifies tokenString, checking its signature, expiry,
// and (if configured) issuer. It does not check the subject against any
// particular account; callers compare Claims.Account() themselves.
func (v *Validator) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(v.cfg.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Mint issues a bootstrap token for account, valid for cfg.TokenDuration.
// Used by the admin CLI's account-bootstrap command, not by gatewayd itself.
func (v *Validator) Mint(account string) (string, time.Time, error) {
	return v.MintWithRoles(account, false, false)
}

// MintWithRoles is Mint with the operator and subuser role claims set explicitly.
func (v *Validator) MintWithRoles(account string, operator, subuser bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(v.cfg.TokenDuration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.cfg.Issuer,
			Subject:   account,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Operator: operator,
		Subuser:  subuser,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(v.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}
