package worker

import (
	"context"
	"testing"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, model.SourceSECEdgar); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// A different source has its own bucket
	if err := limiter.Wait(ctx, model.SourceNewsSearch); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_SourceRate(t *testing.T) {
	limiter := NewLimiter(100, 10)
	limiter.SetSourceRate(model.SourceOpenCorporates, 1, 1)

	if !limiter.Allow(model.SourceOpenCorporates) {
		t.Error("first request should be allowed")
	}
	if limiter.Allow(model.SourceOpenCorporates) {
		t.Error("second immediate request should be throttled at 1 rps burst 1")
	}

	// Other sources still run at the default rate
	if !limiter.Allow(model.SourceSECEdgar) {
		t.Error("unconfigured source should use default rate")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	limiter.Allow(model.SourceSECEdgar) // Drain the single token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, model.SourceSECEdgar); err == nil {
		t.Error("expected error when context expires before a token is available")
	}
}

func TestLimiter_FromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	limiter := NewLimiterFromConfig(cfg)

	// SEC allows a burst of 10 at 10 rps
	for i := 0; i < 10; i++ {
		if !limiter.Allow(model.SourceSECEdgar) {
			t.Fatalf("request %d within SEC burst should be allowed", i)
		}
	}
	if limiter.Allow(model.SourceSECEdgar) {
		t.Error("request beyond SEC burst should be throttled")
	}
}
