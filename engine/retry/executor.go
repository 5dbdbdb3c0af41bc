// Package retry runs provider-facing calls with capped exponential backoff
// and heuristic transient/permanent error classification.
package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
)

// Policy controls a single Execute call.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// IsRetryable defaults to IsTransient.
	IsRetryable func(error) bool
	// OnRetry is invoked before each suspension with the 0-indexed retry
	// attempt, the error that caused it and the delay about to be waited.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns the policy used by provider call sites.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:  DefaultMaxRetries,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		IsRetryable: IsTransient,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.IsRetryable == nil {
		p.IsRetryable = IsTransient
	}
	return p
}

// Backoff builds the delay schedule: BaseDelay * 2^attempt capped at
// MaxDelay, stopping after MaxRetries retries. No jitter.
func (p Policy) Backoff() goretry.Backoff {
	p = p.normalized()
	b := goretry.NewExponential(p.BaseDelay)
	b = goretry.WithCappedDuration(p.MaxDelay, b)
	// #nosec G115 -- MaxRetries clamped to >= 0 above
	return goretry.WithMaxRetries(uint64(p.MaxRetries), b)
}

// Execute runs operation until it succeeds, fails with a non-retryable
// error, or MaxRetries retries are exhausted. The error returned is the last
// one observed.
func Execute[T any](ctx context.Context, policy Policy, operation func(ctx context.Context) (T, error)) (T, error) {
	p := policy.normalized()
	var (
		result  T
		lastErr error
		attempt int
	)
	schedule := p.Backoff()
	observed := goretry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := schedule.Next()
		if stop {
			return 0, true
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, delay)
		}
		attempt++
		return delay, false
	})
	err := goretry.Do(ctx, observed, func(ctx context.Context) error {
		value, opErr := operation(ctx)
		if opErr == nil {
			result = value
			return nil
		}
		lastErr = opErr
		if p.IsRetryable(opErr) {
			return goretry.RetryableError(opErr)
		}
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Do is Execute for operations without a result.
func Do(ctx context.Context, policy Policy, operation func(ctx context.Context) error) error {
	_, err := Execute(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})
	return err
}
