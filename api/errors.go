package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/petal-labs/verdant/core"
)

// CodeInvalidRequest marks a request rejected before any provider call.
const CodeInvalidRequest = "INVALID_REQUEST"

// ErrorResponse is the JSON body of every non-2xx response:
// {"error":{"code":"...","message":"..."}}, the same shape the CLI prints with --json.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries a stable code and a message safe to show to users.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: msg}})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrEmptyImage), errors.Is(err, core.ErrInvalidDataURL):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, core.ErrorCode(err)
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, core.ErrorCode(err)
	case errors.Is(err, core.ErrNilTransport):
		return http.StatusInternalServerError, core.CodeUnknownAPI
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests, core.ErrorCode(err)
	default:
		return http.StatusBadGateway, core.ErrorCode(err)
	}
}

func publicMessage(code string, err error) string {
	switch code {
	case CodeInvalidRequest:
		return err.Error()
	case core.CodeGenerationFailedPermanently:
		return "image generation failed, please try again later"
	case core.CodeNoImageReturned:
		return "the model did not return an image"
	case core.CodeInvalidResponseShape:
		return "the model returned an unexpected response"
	case core.CodeCanceled:
		return "request canceled"
	case core.CodeUnknownAPI:
		return "unknown API error"
	}
	var pe *core.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return "AI API error"
}
