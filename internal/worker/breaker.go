package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// ErrCircuitOpen is returned when a source's circuit breaker rejects the
// call to stop hammering a provider that is clearly down.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerSet tracks one circuit breaker per source. A breaker trips after
// consecutive failures and stays open for the configured timeout; while open
// the source fails fast with ReasonCircuitOpen instead of burning retry
// budget against an outage.
type BreakerSet struct {
	breakers map[model.SourceID]*gobreaker.CircuitBreaker
	mu       sync.Mutex

	maxFailures uint32
	openFor     time.Duration
}

// NewBreakerSet creates a breaker set. Zero values fall back to 3 failures
// and a 30 second open window.
func NewBreakerSet(maxFailures uint32, openFor time.Duration) *BreakerSet {
	if maxFailures == 0 {
		maxFailures = 3
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &BreakerSet{
		breakers:    make(map[model.SourceID]*gobreaker.CircuitBreaker),
		maxFailures: maxFailures,
		openFor:     openFor,
	}
}

// Execute runs fn through the source's breaker
func (b *BreakerSet) Execute(ctx context.Context, id model.SourceID, fn func(ctx context.Context) ([]model.RawRecord, error)) ([]model.RawRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := b.breaker(id).Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &model.SourceFailure{SourceID: id, Reason: model.ReasonCircuitOpen, Detail: ErrCircuitOpen.Error(), Retryable: false}
		}
		return nil, err
	}

	records, _ := result.([]model.RawRecord)
	return records, nil
}

func (b *BreakerSet) breaker(id model.SourceID) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[id]; ok {
		return cb
	}

	maxFailures := b.maxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(id),
		MaxRequests: 1,
		Interval:    0, // Never clear counts on a schedule
		Timeout:     b.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	})
	b.breakers[id] = cb
	return cb
}
