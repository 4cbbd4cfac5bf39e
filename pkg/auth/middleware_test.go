package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(Config{Secret: testSecret, Issuer: "nimbusgw"})
	require.NoError(t, err)
	return v
}

func newAuthorizedRouter(v *Validator) http.Handler {
	r := chi.NewRouter()
	r.With(Authorize(v)).Get("/{account}/ping", func(w http.ResponseWriter, req *http.Request) {
		identity, _ := GetIdentity(req.Context())
		w.Header().Set("X-Account", identity.Account)
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestAuthorizeRejectsMissingToken(t *testing.T) {
	v := testValidator(t)
	req := httptest.NewRequest(http.MethodGet, "/acct-1/ping", nil)
	rr := httptest.NewRecorder()
	newAuthorizedRouter(v).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthorizeRejectsInvalidToken(t *testing.T) {
	v := testValidator(t)
	req := httptest.NewRequest(http.MethodGet, "/acct-1/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := httptest.NewRecorder()
	newAuthorizedRouter(v).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthorizeRejectsSubjectAccountMismatch(t *testing.T) {
	v := testValidator(t)
	token, _, err := v.Mint("acct-2")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/acct-1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	newAuthorizedRouter(v).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthorizeAcceptsMatchingSubjectAndAttachesIdentity(t *testing.T) {
	v := testValidator(t)
	token, _, err := v.Mint("acct-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/acct-1/ping", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rr := httptest.NewRecorder()
	newAuthorizedRouter(v).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "acct-1", rr.Header().Get("X-Account"))
}
