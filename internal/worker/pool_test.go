package worker

import (
	"context"
	"sync/atomic"
	"testing"
)

type countJob struct {
	counter *atomic.Int64
}

type countResult struct{ err error }

func (r *countResult) GetError() error { return r.err }

func (j *countJob) Execute(ctx context.Context) Result {
	j.counter.Add(1)
	return &countResult{}
}

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool(context.Background(), 3)
	pool.Start()

	var counter atomic.Int64
	for i := 0; i < 10; i++ {
		pool.Submit(&countJob{counter: &counter})
	}

	results := pool.Wait()
	if len(results) != 10 {
		t.Errorf("expected 10 results, got %d", len(results))
	}
	if counter.Load() != 10 {
		t.Errorf("expected 10 executions, got %d", counter.Load())
	}
}

func TestPool_ZeroWorkersClamped(t *testing.T) {
	pool := NewPool(context.Background(), 0)
	if pool.workers != 1 {
		t.Errorf("expected 1 worker, got %d", pool.workers)
	}
}

func TestPool_ShutdownStopsWorkers(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	// Submitting after shutdown must not block or panic
	var counter atomic.Int64
	pool.Submit(&countJob{counter: &counter})
	if counter.Load() != 0 {
		t.Error("job should not run after shutdown")
	}
}
