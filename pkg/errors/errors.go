// Package errors defines unified error types for routing and dispatch
// operations. All failure modes the router can surface are mapped to
// these standard error types.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// RouteError represents a standardized error from the routing engine or a
// provider dispatch. It contains all necessary information for error
// handling, logging, and client response.
type RouteError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Provider   string `json:"provider,omitempty"`
	LatencyMs  int64  `json:"latency_ms,omitempty"`
	Retryable  bool   `json:"-"`
	Cause      error  `json:"-"`
}

// Error implements the error interface.
func (e *RouteError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s (provider=%s)", e.Type, e.Message, e.Provider)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *RouteError) Unwrap() error {
	return e.Cause
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *RouteError) HTTPStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// Error types as constants for consistency.
const (
	TypeUnknownProvider    = "unknown_provider"
	TypeRateLimited        = "rate_limited"
	TypeProviderCallFailed = "provider_call_failed"
	TypeStoreUnavailable   = "metrics_store_unavailable"
	TypeAllUnavailable     = "all_providers_unavailable"
	TypeInvalidRequest     = "invalid_request"
	TypeEmptyRegistry      = "empty_registry"
)

// NewUnknownProviderError indicates an explicitly requested provider is not
// registered. Not retryable; the request itself is wrong.
func NewUnknownProviderError(provider string) *RouteError {
	return &RouteError{
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("provider %q is not registered", provider),
		Type:       TypeUnknownProvider,
		Provider:   provider,
		Retryable:  false,
	}
}

// NewRateLimitedError indicates a single provider rejected admission for the
// current window. Retryable against a different provider or a later window.
func NewRateLimitedError(provider string) *RouteError {
	return &RouteError{
		StatusCode: http.StatusTooManyRequests,
		Message:    fmt.Sprintf("provider %q is rate limited for the current window", provider),
		Type:       TypeRateLimited,
		Provider:   provider,
		Retryable:  true,
	}
}

// NewProviderCallFailedError wraps an adapter failure with enough detail for
// the caller to decide whether to retry a fallback.
func NewProviderCallFailedError(provider string, latencyMs int64, cause error) *RouteError {
	msg := "provider call failed"
	if cause != nil {
		msg = fmt.Sprintf("provider call failed: %v", cause)
	}
	return &RouteError{
		StatusCode: http.StatusBadGateway,
		Message:    msg,
		Type:       TypeProviderCallFailed,
		Provider:   provider,
		LatencyMs:  latencyMs,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewStoreUnavailableError indicates the shared counter store could not be
// reached. Callers are expected to fail open rather than surface this to
// end users.
func NewStoreUnavailableError(cause error) *RouteError {
	return &RouteError{
		StatusCode: http.StatusInternalServerError,
		Message:    "counter store unavailable",
		Type:       TypeStoreUnavailable,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewAllUnavailableError indicates every registered provider is currently
// rate limited. Retryable once a window rolls over.
func NewAllUnavailableError() *RouteError {
	return &RouteError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    "all providers are currently rate limited",
		Type:       TypeAllUnavailable,
		Retryable:  true,
	}
}

// NewInvalidRequestError indicates a malformed routing request.
func NewInvalidRequestError(message string) *RouteError {
	return &RouteError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Type:       TypeInvalidRequest,
		Retryable:  false,
	}
}

// NewEmptyRegistryError indicates structural misconfiguration: no providers
// were loaded at startup.
func NewEmptyRegistryError() *RouteError {
	return &RouteError{
		StatusCode: http.StatusInternalServerError,
		Message:    "provider registry is empty",
		Type:       TypeEmptyRegistry,
		Retryable:  false,
	}
}

// IsType reports whether err is a RouteError of the given type.
func IsType(err error, errType string) bool {
	var re *RouteError
	if stderrors.As(err, &re) {
		return re.Type == errType
	}
	return false
}

// IsRetryable reports whether err is a RouteError the caller may retry,
// typically against the next fallback provider.
func IsRetryable(err error) bool {
	var re *RouteError
	if stderrors.As(err, &re) {
		return re.Retryable
	}
	return false
}
