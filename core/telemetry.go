package core

import "time"

// Operation names a façade operation in logs and telemetry.
type Operation string

const (
	OpEditImage         Operation = "edit_image"
	OpEditImageWithMask Operation = "edit_image_with_mask"
	OpImprovePrompt     Operation = "improve_prompt"
	OpAnalyzeImage      Operation = "analyze_image"
)

// TelemetryHook receives notifications about operation and attempt lifecycle events.
// Implementations can use this for logging, metrics, tracing, etc.
//
// # Security Considerations
//
// Events never include API keys, prompts, image payloads or model output.
// Only operational metadata is exposed (operation, model, timing, classification).
// Err and LastErr carry error values; implementations should record their type or
// code rather than forwarding raw provider messages to external systems.
type TelemetryHook interface {
	// OnRequestStart is called when a façade operation begins.
	OnRequestStart(e RequestStartEvent)

	// OnAttempt is called after every transport attempt, successful or not.
	OnAttempt(e AttemptEvent)

	// OnRequestEnd is called when a façade operation completes.
	OnRequestEnd(e RequestEndEvent)
}

// RequestStartEvent contains metadata about a starting operation.
type RequestStartEvent struct {
	Operation Operation
	Model     ModelID
	RequestID string
	Start     time.Time
}

// AttemptEvent describes a single transport attempt.
type AttemptEvent struct {
	Operation Operation
	Model     ModelID
	RequestID string
	Attempt   int // 1-based
	Start     time.Time
	End       time.Time
	Outcome   Outcome
	Class     ErrorClass    // meaningful only when Err is non-nil
	Delay     time.Duration // wait before the next attempt, zero when none follows
	Err       error
}

// Duration returns the elapsed time for the attempt.
func (e AttemptEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// RequestEndEvent contains metadata about a completed operation.
type RequestEndEvent struct {
	Operation Operation
	Model     ModelID
	RequestID string
	Start     time.Time
	End       time.Time
	Attempts  int
	Usage     TokenUsage
	Err       error // error returned to the caller, nil on success
	LastErr   error // last underlying attempt error; differs from Err after retries give up
}

// Duration returns the elapsed time for the operation.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook is a no-op implementation of TelemetryHook.
type NoopTelemetryHook struct{}

// OnRequestStart does nothing.
func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}

// OnAttempt does nothing.
func (NoopTelemetryHook) OnAttempt(AttemptEvent) {}

// OnRequestEnd does nothing.
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent) {}

// MultiTelemetryHook fans events out to several hooks in order.
type MultiTelemetryHook []TelemetryHook

// OnRequestStart forwards e to every hook.
func (m MultiTelemetryHook) OnRequestStart(e RequestStartEvent) {
	for _, h := range m {
		h.OnRequestStart(e)
	}
}

// OnAttempt forwards e to every hook.
func (m MultiTelemetryHook) OnAttempt(e AttemptEvent) {
	for _, h := range m {
		h.OnAttempt(e)
	}
}

// OnRequestEnd forwards e to every hook.
func (m MultiTelemetryHook) OnRequestEnd(e RequestEndEvent) {
	for _, h := range m {
		h.OnRequestEnd(e)
	}
}

// Compile-time checks.
var (
	_ TelemetryHook = NoopTelemetryHook{}
	_ TelemetryHook = MultiTelemetryHook(nil)
)
