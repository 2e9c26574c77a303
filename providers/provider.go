// Package providers contains transport implementations for verdant.
//
// Each transport is implemented in its own subpackage (e.g., providers/gemini,
// providers/googlegenai). Transports implement the core.Transport interface.
//
// # Transport Interface
//
// All transports must implement core.Transport:
//
//	type Transport interface {
//	    ID() string
//	    Generate(ctx context.Context, env *Envelope) (*Response, error)
//	}
//
// Generate performs exactly one call. Retries, normalization and classification
// belong to core.Client; transports only report what happened, filling
// ProviderError.Code with the provider status whenever one is known.
//
// # Concurrency
//
// Transports MUST be safe for concurrent calls.
//
// # Registry
//
// Default-provider transports register a factory under a backend name from
// their init function. Import the subpackage for its side effect and create
// transports by name:
//
//	import _ "github.com/petal-labs/verdant/providers/gemini"
//
//	t, err := providers.Create("gemini", apiKey)
package providers

import "github.com/petal-labs/verdant/core"

// Re-export core types for convenience.
// Transport implementations can import just the providers package.
type (
	// Transport is the interface that transports must implement.
	Transport = core.Transport

	// Envelope is the request handed to a transport.
	Envelope = core.Envelope

	// Response is the raw provider response.
	Response = core.Response

	// ModelID is a string identifier for a model.
	ModelID = core.ModelID

	// TokenUsage tracks token consumption for a request.
	TokenUsage = core.TokenUsage

	// ProviderError represents an error returned by a transport.
	ProviderError = core.ProviderError
)

// Re-export sentinel errors.
var (
	ErrUnauthorized = core.ErrUnauthorized
	ErrRateLimited  = core.ErrRateLimited
	ErrBadRequest   = core.ErrBadRequest
	ErrServer       = core.ErrServer
	ErrNetwork      = core.ErrNetwork
	ErrDecode       = core.ErrDecode
	ErrTransport    = core.ErrTransport
)
