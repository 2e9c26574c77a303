package googlegenai

import (
	"errors"

	"google.golang.org/genai"

	"github.com/petal-labs/verdant/providers/internal/normalize"
)

// normalizeError converts SDK errors to ProviderErrors. APIError.Status becomes
// Code; anything without an HTTP response is a network error.
func normalizeError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fromAPIError(*apiErrPtr)
	}
	return normalize.NetworkError(providerID, err)
}

func fromAPIError(e genai.APIError) error {
	code := e.Status
	if code == "" {
		code = normalize.CanonicalStatus(e.Code)
	}
	return normalize.ProviderError(providerID, e.Code, "", code, e.Message, nil)
}
