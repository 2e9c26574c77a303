package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petal-labs/verdant/core"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitProvider   = 2
	ExitNetwork    = 3
	ExitPermanent  = 4
)

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func validationError(format string, args ...any) error {
	return exitWithCode(ExitValidation, fmt.Errorf(format, args...))
}

// handleError prints err for the user and attaches the exit code.
func (a *App) handleError(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		a.printError(errorCodeFor(err), err)
		return err
	}

	code := ExitProvider
	switch {
	case errors.Is(err, core.ErrEmptyImage), errors.Is(err, core.ErrInvalidDataURL):
		code = ExitValidation
	case errors.Is(err, core.ErrGenerationFailedPermanently):
		code = ExitPermanent
	case errors.Is(err, core.ErrNetwork):
		code = ExitNetwork
	}
	a.printError(errorCodeFor(err), err)
	return exitWithCode(code, err)
}

func errorCodeFor(err error) string {
	var ee *exitError
	if errors.As(err, &ee) && ee.code == ExitValidation {
		return "VALIDATION_ERROR"
	}
	if errors.Is(err, core.ErrEmptyImage) || errors.Is(err, core.ErrInvalidDataURL) {
		return "VALIDATION_ERROR"
	}
	return core.ErrorCode(err)
}

func (a *App) printError(code string, err error) {
	if a.jsonOutput {
		enc := json.NewEncoder(a.stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"error": map[string]string{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	var pe *core.ProviderError
	if errors.As(err, &pe) && pe.RequestID != "" {
		fmt.Fprintf(a.stderr, "  Provider: %s, Request ID: %s\n", pe.Provider, pe.RequestID)
	}
}
