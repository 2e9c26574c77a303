package core

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy determines how long to wait between attempts and how many are allowed.
// Error classification is done by the Retrier before the policy is consulted, so
// policies only ever see retriable errors.
type RetryPolicy interface {
	// NextDelay returns the delay before the next retry attempt and whether to retry.
	// If ok is false, no more retries should be attempted.
	// attempt starts at 0 for the first retry after the initial failure.
	NextDelay(attempt int, err error) (delay time.Duration, ok bool)
}

// LinearBackoff waits Step × n before retry n and allows MaxAttempts attempts in total.
type LinearBackoff struct {
	MaxAttempts int           // Total attempts including the first (default: 3)
	Step        time.Duration // Wait unit (default: 1s)
}

// DefaultRetryPolicy returns the policy used by image-producing operations:
// three attempts, waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return LinearBackoff{MaxAttempts: 3, Step: time.Second}
}

// NextDelay implements RetryPolicy.
func (l LinearBackoff) NextDelay(attempt int, _ error) (time.Duration, bool) {
	maxAttempts := l.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if attempt+1 >= maxAttempts {
		return 0, false
	}
	step := l.Step
	if step <= 0 {
		step = time.Second
	}
	return step * time.Duration(attempt+1), true
}

// ExponentialConfig configures ExponentialBackoff.
type ExponentialConfig struct {
	MaxAttempts int           // Total attempts including the first (default: 3)
	BaseDelay   time.Duration // Initial delay before first retry (default: 1s)
	MaxDelay    time.Duration // Maximum delay cap (default: 30s)
	Jitter      float64       // Jitter factor 0.0-0.3 (default: 0.2)
}

// NewExponentialBackoff creates a jittered exponential policy.
// Jitter is capped at 0.3 so consecutive waits still increase until MaxDelay is reached.
func NewExponentialBackoff(cfg ExponentialConfig) RetryPolicy {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Jitter < 0 || cfg.Jitter > 0.3 {
		cfg.Jitter = 0.2
	}
	return &exponentialBackoff{cfg: cfg}
}

type exponentialBackoff struct {
	cfg ExponentialConfig
}

func (e *exponentialBackoff) NextDelay(attempt int, _ error) (time.Duration, bool) {
	if attempt+1 >= e.cfg.MaxAttempts {
		return 0, false
	}

	// baseDelay * 2^attempt
	delay := float64(e.cfg.BaseDelay) * math.Pow(2, float64(attempt))

	if e.cfg.Jitter > 0 {
		jitterRange := delay * e.cfg.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay > float64(e.cfg.MaxDelay) {
		delay = float64(e.cfg.MaxDelay)
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay), true
}

// Outcome is the result of a single attempt as seen by the retry loop.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeRetriable
	OutcomeNonRetriable
)

// String returns the outcome name used in logs and metric labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeRetriable:
		return "retriable"
	default:
		return "non_retriable"
	}
}

// AttemptFunc performs one transport call plus one normalization pass.
type AttemptFunc func(ctx context.Context) (*EditResult, error)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Report summarizes a finished retry loop.
type Report struct {
	Attempts int
	Outcome  Outcome // outcome of the final attempt
	LastErr  error   // last attempt error, nil on success
}

// Retrier runs an AttemptFunc until it succeeds, fails non-retriably, or the
// policy allows no further attempts. The zero value uses DefaultRetryPolicy,
// SleepContext and a no-op logger.
type Retrier struct {
	Policy RetryPolicy
	Sleep  Sleeper
	Logger *zap.Logger
}

// Run executes the retry loop. observe, when non-nil, is called after every attempt.
//
// Any failure returned is a *GenerationError; the cause of the last attempt is
// only available through Report.LastErr, the logger and observe.
func (r Retrier) Run(ctx context.Context, fn AttemptFunc, observe func(AttemptEvent)) (*EditResult, Report, error) {
	policy := r.Policy
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var report Report
	for {
		if err := ctx.Err(); err != nil {
			return nil, report, r.canceled(log, report, err)
		}

		report.Attempts++
		start := time.Now()
		result, err := fn(ctx)
		if err == nil && result == nil {
			err = ErrNoImageReturned
		}
		event := AttemptEvent{
			Attempt: report.Attempts,
			Start:   start,
			End:     time.Now(),
			Err:     err,
		}

		if err == nil {
			report.Outcome = OutcomeSucceeded
			report.LastErr = nil
			event.Outcome = OutcomeSucceeded
			notify(observe, event)
			if report.Attempts > 1 {
				log.Info("generation succeeded after retry", zap.Int("attempt", report.Attempts))
			}
			return result, report, nil
		}

		report.LastErr = err
		class := Classify(err)
		event.Class = class

		if !class.Retryable() {
			report.Outcome = OutcomeNonRetriable
			event.Outcome = OutcomeNonRetriable
			notify(observe, event)
			log.Error("non-retriable error, aborting retries",
				zap.Int("attempt", report.Attempts),
				zap.Stringer("class", class),
				zap.Error(err),
			)
			return nil, report, &GenerationError{Attempts: report.Attempts, Aborted: true, ctxErr: ctx.Err()}
		}

		report.Outcome = OutcomeRetriable
		event.Outcome = OutcomeRetriable
		delay, ok := policy.NextDelay(report.Attempts-1, err)
		if ok {
			event.Delay = delay
		}
		notify(observe, event)

		if !ok {
			log.Error("all generation attempts failed",
				zap.Int("attempts", report.Attempts),
				zap.Stringer("class", class),
				zap.Error(err),
			)
			return nil, report, &GenerationError{Attempts: report.Attempts, ctxErr: ctx.Err()}
		}

		log.Warn("generation attempt failed, retrying",
			zap.Int("attempt", report.Attempts),
			zap.Stringer("class", class),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := sleep(ctx, delay); err != nil {
			return nil, report, r.canceled(log, report, err)
		}
	}
}

func (r Retrier) canceled(log *zap.Logger, report Report, ctxErr error) error {
	log.Warn("generation canceled",
		zap.Int("attempts", report.Attempts),
		zap.NamedError("last_error", report.LastErr),
		zap.Error(ctxErr),
	)
	return &GenerationError{Attempts: report.Attempts, ctxErr: ctxErr}
}

func notify(observe func(AttemptEvent), e AttemptEvent) {
	if observe != nil {
		observe(e)
	}
}
