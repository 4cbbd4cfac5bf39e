package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nimbusstore/gateway/pkg/gwerr"
)

type contextKey int

const identityContextKey contextKey = iota

// GetIdentity returns the Identity Authorize attached to ctx, if any.
func GetIdentity(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok
}

// extractBearerToken pulls the token out of a request's Authorization header.
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// Authorize builds middleware that validates the request's bearer token and
// requires its subject to match the :account URL parameter, per §"Authentication":
// "the authorizer middleware validates the token's signature, expiry, and that
// its subject matches :account". Requests failing either check get a 401
// before any handler-level logic runs.
func Authorize(v *Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				gwerr.WriteProblem(w, gwerr.NewUnauthorized("missing or malformed bearer token"))
				return
			}

			claims, err := v.Validate(token)
			if err != nil {
				gwerr.WriteProblem(w, gwerr.NewUnauthorized(err.Error()))
				return
			}

			if account := chi.URLParam(r, "account"); account != "" && claims.Account() != account {
				gwerr.WriteProblem(w, gwerr.NewUnauthorized("token subject does not match account"))
				return
			}

			identity := &Identity{Account: claims.Account(), Operator: claims.Operator, Subuser: claims.Subuser}
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
