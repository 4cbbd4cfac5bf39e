package conditional

import (
	"net/http"
	"testing"
	"time"

	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateNoHeadersProceeds(t *testing.T) {
	out, err := Evaluate(http.MethodGet, Resource{Etag: "abc", Exists: true}, "", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, Proceed, out)
}

func TestIfMatchWildcardRequiresExistence(t *testing.T) {
	_, err := Evaluate(http.MethodPut, Resource{Exists: false}, "*", "", "", "")
	require.Error(t, err)
	assert.Equal(t, gwerr.PreconditionFailed, gwerr.CodeOf(err))

	out, err := Evaluate(http.MethodPut, Resource{Etag: "abc", Exists: true}, "*", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, Proceed, out)
}

func TestIfMatchRejectsMismatch(t *testing.T) {
	_, err := Evaluate(http.MethodPut, Resource{Etag: "abc", Exists: true}, `"xyz"`, "", "", "")
	require.Error(t, err)
	assert.Equal(t, gwerr.PreconditionFailed, gwerr.CodeOf(err))
}

func TestIfMatchAcceptsListedEtag(t *testing.T) {
	out, err := Evaluate(http.MethodPut, Resource{Etag: "abc", Exists: true}, `"xyz", "abc"`, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, Proceed, out)
}

func TestIfMatchRejectsWeakValidator(t *testing.T) {
	_, err := Evaluate(http.MethodPut, Resource{Etag: "abc", Exists: true}, `W/"abc"`, "", "", "")
	require.Error(t, err, "weak validators never satisfy If-Match's strong comparison")
	assert.Equal(t, gwerr.PreconditionFailed, gwerr.CodeOf(err))
}

func TestIfNoneMatchSafeMethodReturnsNotModified(t *testing.T) {
	out, err := Evaluate(http.MethodGet, Resource{Etag: "abc", Exists: true}, "", `"abc"`, "", "")
	require.NoError(t, err)
	assert.Equal(t, NotModified, out)
}

func TestIfNoneMatchUnsafeMethodFailsPrecondition(t *testing.T) {
	_, err := Evaluate(http.MethodPut, Resource{Etag: "abc", Exists: true}, "", `"abc"`, "", "")
	require.Error(t, err)
	assert.Equal(t, gwerr.PreconditionFailed, gwerr.CodeOf(err))
}

func TestIfNoneMatchWildcardMatchesAnyExtant(t *testing.T) {
	out, err := Evaluate(http.MethodGet, Resource{Etag: "anything", Exists: true}, "", "*", "", "")
	require.NoError(t, err)
	assert.Equal(t, NotModified, out)
}

func TestIfModifiedSinceUnmodifiedReturnsNotModified(t *testing.T) {
	mod := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	header := mod.Format(http.TimeFormat)
	out, err := Evaluate(http.MethodGet, Resource{Etag: "abc", ModTime: mod, Exists: true}, "", "", header, "")
	require.NoError(t, err)
	assert.Equal(t, NotModified, out)
}

func TestIfModifiedSinceModifiedProceeds(t *testing.T) {
	header := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)
	mod := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := Evaluate(http.MethodGet, Resource{Etag: "abc", ModTime: mod, Exists: true}, "", "", header, "")
	require.NoError(t, err)
	assert.Equal(t, Proceed, out)
}

func TestIfUnmodifiedSinceRejectsNewerResource(t *testing.T) {
	header := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)
	mod := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := Evaluate(http.MethodPut, Resource{Etag: "abc", ModTime: mod, Exists: true}, "", "", "", header)
	require.Error(t, err)
	assert.Equal(t, gwerr.PreconditionFailed, gwerr.CodeOf(err))
}

func TestMalformedTimestampIsBadRequest(t *testing.T) {
	_, err := Evaluate(http.MethodGet, Resource{Exists: true}, "", "", "not-a-date", "")
	require.Error(t, err)
	assert.Equal(t, gwerr.BadRequest, gwerr.CodeOf(err))
}
