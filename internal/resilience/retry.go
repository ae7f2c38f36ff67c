package resilience

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// jitter bounds applied to every computed backoff delay.
const (
	jitterMin = 0.75
	jitterMax = 1.25
)

// Retryer executes operations with exponential backoff between attempts.
// The delay for attempt n is min(baseDelay * 2^(n-1), maxDelay) scaled by a
// random jitter factor in [0.75, 1.25]. Non-retryable failures propagate
// immediately without sleeping; the final attempt's failure is returned
// unchanged.
type Retryer struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	classify    func(error) bool
	logger      *slog.Logger

	// injectable for tests
	sleep  func(time.Duration)
	random func() float64
}

// RetryerOption configures a Retryer.
type RetryerOption func(*Retryer)

// WithClassifier overrides the retryable-error classification.
// The default treats types.IsRetryable errors as retryable.
func WithClassifier(classify func(error) bool) RetryerOption {
	return func(r *Retryer) {
		r.classify = classify
	}
}

// WithSleep overrides the sleep function. Used by tests.
func WithSleep(sleep func(time.Duration)) RetryerOption {
	return func(r *Retryer) {
		r.sleep = sleep
	}
}

// WithRandom overrides the jitter source. Used by tests.
func WithRandom(random func() float64) RetryerOption {
	return func(r *Retryer) {
		r.random = random
	}
}

// NewRetryer creates a Retryer with the given attempt budget and delay bounds.
func NewRetryer(maxAttempts int, baseDelay, maxDelay time.Duration, logger *slog.Logger, opts ...RetryerOption) *Retryer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	r := &Retryer{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		classify:    types.IsRetryable,
		logger:      logger,
		sleep:       time.Sleep,
		random:      rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is exhausted. The context is passed through to fn for
// per-attempt timeouts; the backoff sleeps themselves are not cancelable.
func (r *Retryer) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.classify(err) {
			return err
		}
		if attempt == r.maxAttempts {
			break
		}

		delay := r.delayFor(attempt)
		r.logger.Debug("retrying after transient failure",
			"op", op,
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"delay", delay,
			"error", err)
		r.sleep(delay)
	}

	return lastErr
}

// delayFor computes the jittered backoff delay for the given attempt number.
func (r *Retryer) delayFor(attempt int) time.Duration {
	delay := time.Duration(float64(r.baseDelay) * math.Pow(2, float64(attempt-1)))
	if r.maxDelay > 0 && delay > r.maxDelay {
		delay = r.maxDelay
	}
	factor := jitterMin + r.random()*(jitterMax-jitterMin)
	return time.Duration(float64(delay) * factor)
}
