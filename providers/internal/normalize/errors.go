// Package normalize provides shared transport error normalization helpers.
package normalize

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/petal-labs/verdant/core"
)

// googleStyleErrorResponse represents endpoints that return:
// {"error":{"code":400,"message":"...","status":"INVALID_ARGUMENT"}}
type googleStyleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ParseGoogleError extracts the status code and message from a google-style
// error body. Both are empty when the body has another shape.
func ParseGoogleError(body []byte) (status, message string) {
	var errResp googleStyleErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return "", ""
	}
	return errResp.Error.Status, errResp.Error.Message
}

// GoogleStyleProviderError normalizes google-style error envelopes.
// When the body carries no status, the canonical code for the HTTP status is used.
func GoogleStyleProviderError(provider string, status int, body []byte, requestID string, sentinel error) error {
	code, message := ParseGoogleError(body)
	if code == "" {
		code = CanonicalStatus(status)
	}
	return ProviderError(provider, status, requestID, code, message, sentinel)
}

// CanonicalStatus maps an HTTP status to the google.rpc canonical code name.
func CanonicalStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return core.StatusInvalidArgument
	case http.StatusUnauthorized:
		return core.StatusUnauthenticated
	case http.StatusForbidden:
		return "PERMISSION_DENIED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "ABORTED"
	case http.StatusTooManyRequests:
		return core.StatusResourceExhausted
	case 499:
		return "CANCELLED"
	case http.StatusNotImplemented:
		return "UNIMPLEMENTED"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	case http.StatusGatewayTimeout:
		return "DEADLINE_EXCEEDED"
	}
	if status >= 500 {
		return "INTERNAL"
	}
	return "UNKNOWN"
}

// NetworkError wraps transport failures as provider-specific network errors.
// The cause stays in the chain so context cancellation remains detectable.
func NetworkError(provider string, err error) error {
	return &core.ProviderError{
		Provider: provider,
		Message:  err.Error(),
		Err:      fmt.Errorf("%w: %w", core.ErrNetwork, err),
	}
}

// DecodeError wraps decode/parsing failures as provider-specific decode errors.
func DecodeError(provider string, err error) error {
	return &core.ProviderError{
		Provider: provider,
		Message:  err.Error(),
		Err:      core.ErrDecode,
	}
}

// ProviderError constructs a normalized ProviderError.
// If message is empty, HTTP status text is used.
// If sentinel is nil, default status-based mapping is applied.
func ProviderError(provider string, status int, requestID, code, message string, sentinel error) error {
	if message == "" {
		message = http.StatusText(status)
	}
	if sentinel == nil {
		sentinel = SentinelForStatus(status)
	}
	return &core.ProviderError{
		Provider:  provider,
		Status:    status,
		RequestID: requestID,
		Code:      code,
		Message:   message,
		Err:       sentinel,
	}
}

// SentinelForStatus maps an HTTP status code to a core sentinel error.
func SentinelForStatus(status int) error {
	return SentinelForStatusWithOverrides(status, nil)
}

// SentinelForStatusWithOverrides maps an HTTP status code to a core sentinel error,
// then applies any exact status overrides from the provided map.
func SentinelForStatusWithOverrides(status int, overrides map[int]error) error {
	if overrides != nil {
		if override, ok := overrides[status]; ok && override != nil {
			return override
		}
	}

	switch {
	case status == http.StatusBadRequest:
		return core.ErrBadRequest
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimited
	default:
		return core.ErrServer
	}
}
