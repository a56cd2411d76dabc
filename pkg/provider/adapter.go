// Package provider defines the adapter contract between the routing core
// and per-provider request/response translation. The core never depends on
// a provider's wire format; it sees only this interface.
package provider

import "context"

// Request is the normalized prompt handed to an adapter.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is the normalized reply from any provider adapter.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Adapter translates a normalized request into a provider-specific call and
// parses the provider's reply back. One implementation per provider.
//
// Send must be safe for concurrent use. Implementations should honor ctx
// for their own timeouts, but callers that need the outcome recorded even
// after client abandonment pass a detached context.
type Adapter interface {
	// Name returns the provider identifier, e.g. "openai".
	Name() string

	// Send executes the request and returns the normalized response.
	Send(ctx context.Context, req Request) (*Response, error)
}
