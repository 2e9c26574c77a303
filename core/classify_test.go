package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"unauthenticated", &ProviderError{Provider: "gemini", Status: 401, Code: StatusUnauthenticated}, ClassUnauthenticated},
		{"invalid argument", &ProviderError{Provider: "gemini", Status: 400, Code: StatusInvalidArgument}, ClassInvalidArgument},
		{"resource exhausted", &ProviderError{Provider: "gemini", Status: 429, Code: StatusResourceExhausted}, ClassResourceExhausted},
		{"wrapped provider error", fmt.Errorf("call: %w", &ProviderError{Code: StatusUnauthenticated}), ClassUnauthenticated},
		{"no image", ErrNoImageReturned, ClassNoImageReturned},
		{"server error", &ProviderError{Provider: "gemini", Status: 500, Code: "INTERNAL", Err: ErrServer}, ClassTransient},
		{"custom endpoint 401 without code", &ProviderError{Provider: "custom", Status: 401, Err: ErrTransport}, ClassTransient},
		{"network", ErrNetwork, ClassTransient},
		{"unknown", errors.New("boom"), ClassTransient},
		{"canceled", context.Canceled, ClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorClassRetryable(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ClassTransient, true},
		{ClassNoImageReturned, true},
		{ClassUnauthenticated, false},
		{ClassInvalidArgument, false},
		{ClassResourceExhausted, false},
	}

	for _, tt := range tests {
		if got := tt.class.Retryable(); got != tt.want {
			t.Errorf("%v.Retryable() = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestGenerationErrorChain(t *testing.T) {
	exhausted := &GenerationError{Attempts: 3}
	if !errors.Is(exhausted, ErrGenerationFailedPermanently) {
		t.Error("exhausted error should match ErrGenerationFailedPermanently")
	}
	if errors.Is(exhausted, context.Canceled) {
		t.Error("exhausted error should not match context.Canceled")
	}

	canceled := &GenerationError{Attempts: 1, ctxErr: context.Canceled}
	if !errors.Is(canceled, ErrGenerationFailedPermanently) {
		t.Error("canceled error should match ErrGenerationFailedPermanently")
	}
	if !errors.Is(canceled, context.Canceled) {
		t.Error("canceled error should match context.Canceled")
	}
}

func TestShapeErrorChain(t *testing.T) {
	syntax := errors.New("unexpected end of JSON input")
	err := &ShapeError{Reason: "response is not a JSON object", Err: syntax}
	if !errors.Is(err, ErrInvalidResponseShape) {
		t.Error("ShapeError should match ErrInvalidResponseShape")
	}
	if !errors.Is(err, syntax) {
		t.Error("ShapeError should match its parse error")
	}
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{
		Provider:  "gemini",
		Status:    429,
		Code:      StatusResourceExhausted,
		Message:   "quota exceeded",
		RequestID: "req-1",
	}
	want := "gemini: quota exceeded (status=429, code=RESOURCE_EXHAUSTED, request_id=req-1)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"permanent", &GenerationError{Attempts: 3}, CodeGenerationFailedPermanently},
		{"permanent and canceled", &GenerationError{Attempts: 1, ctxErr: context.Canceled}, CodeCanceled},
		{"permanent and deadline", &GenerationError{Attempts: 3, ctxErr: context.DeadlineExceeded}, CodeCanceled},
		{"no image", ErrNoImageReturned, CodeNoImageReturned},
		{"shape", &ShapeError{Reason: "missing suggestions"}, CodeInvalidResponseShape},
		{"unknown api", ErrUnknownAPI, CodeUnknownAPI},
		{"deadline", context.DeadlineExceeded, CodeCanceled},
		{"provider", &ProviderError{Provider: "custom", Status: 500, Err: ErrTransport}, CodeAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
