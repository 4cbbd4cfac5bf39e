package gwerr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{BadRequest, http.StatusBadRequest},
		{PreconditionFailed, http.StatusPreconditionFailed},
		{ResourceNotFound, http.StatusNotFound},
		{NotAcceptable, http.StatusNotAcceptable},
		{DirectoryLimit, http.StatusBadRequest},
		{InvalidDurabilityLevel, http.StatusBadRequest},
		{MaxContentLength, http.StatusRequestEntityTooLarge},
		{ChecksumMismatch, http.StatusBadRequest},
		{ConcurrentRequest, http.StatusPreconditionFailed},
		{SharksExhausted, http.StatusServiceUnavailable},
		{FinalizeConflict, http.StatusConflict},
		{StateError, http.StatusConflict},
		{Internal, http.StatusInternalServerError},
		{Unauthorized, http.StatusUnauthorized},
		{RangeNotSatisfiable, http.StatusRequestedRangeNotSatisfiable},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.code.HTTPStatus(), c.code.String())
	}
}

func TestErrorMessage(t *testing.T) {
	e := NewResourceNotFound("/acct/obj")
	assert.Contains(t, e.Error(), "ResourceNotFound")
	assert.Contains(t, e.Error(), "/acct/obj")

	plain := New(Internal, "boom")
	assert.Equal(t, "Internal: boom", plain.Error())
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	e := Wrap(ShardUnavailable, "metadata shard down", cause)
	assert.ErrorIs(t, e, cause)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ResourceNotFound, CodeOf(NewResourceNotFound("/x")))
	assert.Equal(t, Internal, CodeOf(errors.New("not a gwerr")))
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NewResourceNotFound("/x")))
	assert.True(t, IsNotFound(NewNotFound("k")))
	assert.False(t, IsNotFound(NewInternal("oops")))

	assert.True(t, IsEtagMismatch(NewEtagMismatch("k")))
	assert.False(t, IsEtagMismatch(NewConflict("k")))

	assert.True(t, IsRetriable(NewShardUnavailable("shard-1", nil)))
	assert.False(t, IsRetriable(NewConflict("k")))
}

func TestUnknownCodeString(t *testing.T) {
	var c Code = 999
	assert.Contains(t, c.String(), "Unknown")
}
