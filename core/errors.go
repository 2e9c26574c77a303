package core

import (
	"context"
	"errors"
	"fmt"
)

// ProviderError represents an error returned by a transport with full context.
type ProviderError struct {
	Provider  string
	Status    int // HTTP status, 0 when the request never got a response
	RequestID string
	Code      string // Provider status such as "UNAUTHENTICATED"
	Message   string
	Body      string // Raw response body for non-2xx custom endpoint responses
	Err       error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (status=%d, code=%s, request_id=%s)",
			e.Provider, e.Message, e.Status, e.Code, e.RequestID)
	}
	return fmt.Sprintf("%s: %s (status=%d, code=%s)",
		e.Provider, e.Message, e.Status, e.Code)
}

// Unwrap returns the underlying error for error chaining.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Sentinel errors for classification.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrBadRequest   = errors.New("bad request")
	ErrServer       = errors.New("server error")
	ErrDecode       = errors.New("decode error")

	// ErrTransport marks a failed custom endpoint call or a network failure.
	ErrTransport = errors.New("transport error")
	// ErrNetwork is a transport failure before any response arrived.
	ErrNetwork = fmt.Errorf("network error: %w", ErrTransport)

	// ErrNoImageReturned means the provider answered without an image part.
	ErrNoImageReturned = errors.New("no image returned")
	// ErrGenerationFailedPermanently is the only failure surfaced by the
	// image-producing operations once retries are exhausted or aborted.
	ErrGenerationFailedPermanently = errors.New("generation failed permanently")
	// ErrInvalidResponseShape means structured output did not match the expected shape.
	ErrInvalidResponseShape = errors.New("invalid response shape")
	// ErrUnknownAPI is the catch-all for transports that return neither a response nor an error.
	ErrUnknownAPI = errors.New("unknown API error")
)

// GenerationError is returned by image-producing operations after the retry loop gives up.
// The cause of the last attempt is deliberately left out of the chain; it is reported
// through logging and TelemetryHook.OnRequestEnd instead.
type GenerationError struct {
	Attempts int
	Aborted  bool  // true when a non-retriable error stopped the loop early
	ctxErr   error // set when the caller's context ended the loop
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	switch {
	case e.ctxErr != nil:
		return fmt.Sprintf("%s: canceled after %d attempt(s): %v", ErrGenerationFailedPermanently, e.Attempts, e.ctxErr)
	case e.Aborted:
		return fmt.Sprintf("%s: aborted after %d attempt(s)", ErrGenerationFailedPermanently, e.Attempts)
	default:
		return fmt.Sprintf("%s: %d attempt(s) exhausted", ErrGenerationFailedPermanently, e.Attempts)
	}
}

// Unwrap exposes the permanent-failure sentinel, plus the context error on cancellation.
func (e *GenerationError) Unwrap() []error {
	if e.ctxErr != nil {
		return []error{ErrGenerationFailedPermanently, e.ctxErr}
	}
	return []error{ErrGenerationFailedPermanently}
}

// ShapeError reports a structured response that failed validation.
type ShapeError struct {
	Reason string
	Err    error // JSON syntax error, if any
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInvalidResponseShape, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidResponseShape, e.Reason)
}

// Unwrap returns the sentinel and the underlying parse error.
func (e *ShapeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidResponseShape, e.Err}
	}
	return []error{ErrInvalidResponseShape}
}

// Stable error codes for presentation layers.
const (
	CodeGenerationFailedPermanently = "AI_GENERATION_FAILED_PERMANENTLY"
	CodeNoImageReturned             = "AI_NO_IMAGE_RETURNED"
	CodeInvalidResponseShape        = "INVALID_RESPONSE_SHAPE"
	CodeUnknownAPI                  = "UNKNOWN_API_ERROR"
	CodeCanceled                    = "CANCELED"
	CodeAPI                         = "AI_API_ERROR"
)

// ErrorCode maps err to a stable code. A canceled or expired context wins over
// everything else; permanent generation failure is checked next so it stays
// distinct from single-shot call failures.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	case errors.Is(err, ErrGenerationFailedPermanently):
		return CodeGenerationFailedPermanently
	case errors.Is(err, ErrNoImageReturned):
		return CodeNoImageReturned
	case errors.Is(err, ErrInvalidResponseShape):
		return CodeInvalidResponseShape
	case errors.Is(err, ErrUnknownAPI):
		return CodeUnknownAPI
	default:
		return CodeAPI
	}
}

// ErrNilTransport is returned when a Client was built without a Transport.
var ErrNilTransport = errors.New("transport required: pass a core.Transport to NewClient")
