package gemini

import (
	"net/http"

	"github.com/petal-labs/verdant/core"
	"github.com/petal-labs/verdant/providers/internal/normalize"
)

// normalizeError converts an HTTP error response to a ProviderError.
// Code carries the google status from the body, or the canonical code for the
// HTTP status when the body has none, so retry classification always has a value.
func normalizeError(status int, body []byte) error {
	sentinel := normalize.SentinelForStatusWithOverrides(status, map[int]error{
		http.StatusNotFound: core.ErrBadRequest,
	})
	return normalize.GoogleStyleProviderError(providerID, status, body, "", sentinel)
}

// newNetworkError creates a ProviderError for network-related failures.
func newNetworkError(err error) error {
	return normalize.NetworkError(providerID, err)
}

// newDecodeError creates a ProviderError for JSON decode failures.
func newDecodeError(err error) error {
	return normalize.DecodeError(providerID, err)
}
