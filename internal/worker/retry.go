package worker

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// retrySleepFunc is the sleep function used between attempts (injectable for tests)
var retrySleepFunc = sleepCtx

// RetryPolicy is a reusable bounded-backoff policy composable around any
// fetch operation. Only retryable failures are retried; permanent failures
// propagate immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	Jitter      float64 // Fraction of the computed delay, 0..1
}

// NewRetryPolicy builds a policy from configuration
func NewRetryPolicy(cfg model.RetryConfig) *RetryPolicy {
	p := &RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
		MaxDelay:    cfg.MaxDelay,
		Jitter:      cfg.Jitter,
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	return p
}

// Do runs fn until it succeeds, exhausts the attempt budget, or hits a
// permanent failure. It returns the records, the number of attempts made,
// and a *model.SourceFailure on failure.
func (p *RetryPolicy) Do(ctx context.Context, id model.SourceID, fn func(ctx context.Context) ([]model.RawRecord, error)) ([]model.RawRecord, int, error) {
	var failure *model.SourceFailure

	delay := p.BaseDelay
	attempts := 0

	for attempts < p.MaxAttempts {
		attempts++

		records, err := fn(ctx)
		if err == nil {
			return records, attempts, nil
		}

		failure = Classify(id, err)
		if !failure.Retryable {
			return nil, attempts, failure
		}
		if attempts >= p.MaxAttempts {
			break
		}

		if err := retrySleepFunc(ctx, p.withJitter(delay)); err != nil {
			// A deadline hit during backoff is this source's timeout, not a
			// run cancellation; Classify keeps the two reasons apart
			sleepFailure := Classify(id, err)
			sleepFailure.Retryable = false
			return nil, attempts, sleepFailure
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	// Exhausted: the failure is now permanent for this run
	failure.Retryable = false
	return nil, attempts, failure
}

// withJitter spreads the delay to avoid synchronized retry bursts
func (p *RetryPolicy) withJitter(d time.Duration) time.Duration {
	if p.Jitter <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * p.Jitter
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// Classify turns an arbitrary fetch error into a typed SourceFailure.
// Fetchers return *model.SourceFailure directly for protocol-level errors;
// everything else is mapped here.
func Classify(id model.SourceID, err error) *model.SourceFailure {
	var failure *model.SourceFailure
	if errors.As(err, &failure) {
		return failure
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &model.SourceFailure{SourceID: id, Reason: model.ReasonTimeout, Detail: err.Error(), Retryable: true}
	case errors.Is(err, context.Canceled):
		return &model.SourceFailure{SourceID: id, Reason: model.ReasonCancelled, Detail: err.Error(), Retryable: false}
	default:
		return &model.SourceFailure{SourceID: id, Reason: model.ReasonNetwork, Detail: err.Error(), Retryable: true}
	}
}

// sleepCtx sleeps for d or until the context is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
