package resilience

import (
	"context"
	"time"
)

// Outcome tags the result of a single attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeTerminal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// BackoffFunc returns the wait after the given 1-based attempt failed.
type BackoffFunc func(attempt int) time.Duration

// LinearBackoff waits base*attempt: base, 2*base, 3*base, ...
func LinearBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 || base <= 0 {
			return 0
		}
		return base * time.Duration(attempt)
	}
}

type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds how often and how slowly an operation is retried.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffFunc
	// Sleep defaults to SleepContext; tests replace it to observe waits.
	Sleep SleepFunc
	// OnBackoff is called before every wait.
	OnBackoff func(attempt int, wait time.Duration)
}

// Attempts is MaxAttempts clamped to at least one.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do calls fn until it reports success or a terminal outcome, or until the
// attempts run out. The final attempt is never followed by a wait. It returns
// how many attempts ran; the error is non-nil only when ctx ended while
// waiting.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) Outcome) (int, error) {
	maxAttempts := p.Attempts()
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = LinearBackoff(0)
	}

	for attempt := 1; ; attempt++ {
		outcome := fn(attempt)
		if outcome != OutcomeRetryable || attempt >= maxAttempts {
			return attempt, nil
		}

		wait := backoff(attempt)
		if p.OnBackoff != nil {
			p.OnBackoff(attempt, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return attempt, err
		}
	}
}

// SleepContext blocks for d or until ctx is done.
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
