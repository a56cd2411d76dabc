package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteErrorMessage(t *testing.T) {
	err := NewRateLimitedError("openai")
	assert.Contains(t, err.Error(), TypeRateLimited)
	assert.Contains(t, err.Error(), "openai")

	bare := NewInvalidRequestError("prompt is required")
	assert.Equal(t, "["+TypeInvalidRequest+"] prompt is required", bare.Error())
}

func TestRouteErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err  *RouteError
		want int
	}{
		{NewUnknownProviderError("nope"), http.StatusNotFound},
		{NewRateLimitedError("openai"), http.StatusTooManyRequests},
		{NewProviderCallFailedError("openai", 120, errors.New("boom")), http.StatusBadGateway},
		{NewStoreUnavailableError(errors.New("conn refused")), http.StatusInternalServerError},
		{NewAllUnavailableError(), http.StatusServiceUnavailable},
		{NewInvalidRequestError("bad"), http.StatusBadRequest},
		{NewEmptyRegistryError(), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.HTTPStatusCode(), tc.err.Type)
	}
}

func TestRouteErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewProviderCallFailedError("claude", 350, cause)

	require.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("dispatch: %w", err)
	var re *RouteError
	require.ErrorAs(t, wrapped, &re)
	assert.Equal(t, "claude", re.Provider)
	assert.Equal(t, int64(350), re.LatencyMs)
}

func TestIsType(t *testing.T) {
	err := NewUnknownProviderError("mystery")
	assert.True(t, IsType(err, TypeUnknownProvider))
	assert.False(t, IsType(err, TypeRateLimited))
	assert.False(t, IsType(errors.New("plain"), TypeUnknownProvider))

	wrapped := fmt.Errorf("route: %w", err)
	assert.True(t, IsType(wrapped, TypeUnknownProvider))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRateLimitedError("openai")))
	assert.True(t, IsRetryable(NewProviderCallFailedError("openai", 0, errors.New("boom"))))
	assert.False(t, IsRetryable(NewInvalidRequestError("bad")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
