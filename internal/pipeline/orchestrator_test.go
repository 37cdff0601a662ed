package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/source"
	"github.com/blackwidowglobal/dossier/internal/worker"
)

// stubFetcher is a scripted source for orchestrator tests
type stubFetcher struct {
	id         model.SourceID
	applicable bool
	records    []model.RawRecord
	failWith   error
	failTimes  int // Fail this many calls, then succeed
	delay      time.Duration
	calls      int32
}

func (s *stubFetcher) ID() model.SourceID            { return s.id }
func (s *stubFetcher) Applicable(model.Subject) bool { return s.applicable }

func (s *stubFetcher) Fetch(ctx context.Context, _ model.Subject, _ model.SourceConfig) ([]model.RawRecord, error) {
	call := atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.failWith != nil && (s.failTimes == 0 || int(call) <= s.failTimes) {
		return nil, s.failWith
	}
	return s.records, nil
}

func testConfig(enabled ...model.SourceID) *model.Config {
	cfg := model.DefaultConfig()
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond
	cfg.Retry.Jitter = 0
	cfg.Concurrency.SourceTimeout = 2 * time.Second
	cfg.Concurrency.RunTimeout = 5 * time.Second
	cfg.Sources = make(map[string]model.SourceConfig)
	for _, id := range enabled {
		cfg.Sources[string(id)] = model.SourceConfig{Enabled: true, RatePerSec: 1000, Burst: 100}
	}
	return cfg
}

func orchestratorOver(cfg *model.Config, stubs ...*stubFetcher) *Orchestrator {
	fetchers := make([]source.Fetcher, len(stubs))
	for i, s := range stubs {
		fetchers[i] = s
	}
	return NewOrchestrator(fetchers, worker.NewBreakerSet(0, 0), cfg)
}

func TestFetchAllCoverageIsTotal(t *testing.T) {
	cfg := testConfig(model.SourceSECEdgar, model.SourceNewsSearch, model.SourceUCCFilings)

	ok := &stubFetcher{id: model.SourceSECEdgar, applicable: true, records: []model.RawRecord{
		{SourceID: model.SourceSECEdgar, Kind: model.RecordRegistration, Name: "Acme LLC"},
		{SourceID: model.SourceSECEdgar, Kind: model.RecordFiling, Name: "Acme LLC"},
	}}
	broken := &stubFetcher{id: model.SourceNewsSearch, applicable: true,
		failWith: &model.SourceFailure{SourceID: model.SourceNewsSearch, Reason: model.ReasonUnauthorized, Detail: "bad token"}}
	inapplicable := &stubFetcher{id: model.SourceUCCFilings, applicable: false}

	orch := orchestratorOver(cfg, ok, broken, inapplicable)
	subject := model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC", State: "DE"}

	records, coverage := orch.FetchAll(context.Background(), subject)

	if len(coverage) != 3 {
		t.Fatalf("coverage must list every enabled source, got %d entries", len(coverage))
	}
	if got := coverage[model.SourceSECEdgar]; got.Status != model.CoverageSucceeded || got.Records != 2 {
		t.Errorf("sec_edgar coverage = %+v", got)
	}
	if got := coverage[model.SourceNewsSearch]; got.Status != model.CoverageFailed || got.Reason == "" {
		t.Errorf("news_search coverage = %+v", got)
	}
	if got := coverage[model.SourceUCCFilings]; got.Status != model.CoverageSkipped {
		t.Errorf("ucc_filings coverage = %+v", got)
	}
	if len(records[model.SourceSECEdgar]) != 2 {
		t.Errorf("records lost: %v", records)
	}
	if _, ok := records[model.SourceNewsSearch]; ok {
		t.Errorf("failed source must not contribute records")
	}
}

func TestFetchAllRetriesTransientFailures(t *testing.T) {
	cfg := testConfig(model.SourceSECEdgar)

	flaky := &stubFetcher{id: model.SourceSECEdgar, applicable: true, failTimes: 2,
		failWith: &model.SourceFailure{SourceID: model.SourceSECEdgar, Reason: model.ReasonNetwork, Retryable: true},
		records:  []model.RawRecord{{SourceID: model.SourceSECEdgar, Kind: model.RecordRegistration, Name: "Acme LLC"}},
	}

	orch := orchestratorOver(cfg, flaky)
	_, coverage := orch.FetchAll(context.Background(), model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC"})

	if got := coverage[model.SourceSECEdgar]; got.Status != model.CoverageSucceeded {
		t.Errorf("flaky source should succeed after retries: %+v", got)
	}
	if calls := atomic.LoadInt32(&flaky.calls); calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestFetchAllSlowSourceTimesOutAlone(t *testing.T) {
	cfg := testConfig(model.SourceSECEdgar, model.SourceNewsSearch)
	cfg.Retry.MaxAttempts = 1
	cfg.Concurrency.SourceTimeout = 30 * time.Millisecond

	slow := &stubFetcher{id: model.SourceNewsSearch, applicable: true, delay: 5 * time.Second}
	fast := &stubFetcher{id: model.SourceSECEdgar, applicable: true,
		records: []model.RawRecord{{SourceID: model.SourceSECEdgar, Kind: model.RecordRegistration, Name: "Acme LLC"}}}

	orch := orchestratorOver(cfg, fast, slow)
	records, coverage := orch.FetchAll(context.Background(), model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC"})

	if got := coverage[model.SourceSECEdgar]; got.Status != model.CoverageSucceeded {
		t.Errorf("fast source dragged down by slow one: %+v", got)
	}
	if got := coverage[model.SourceNewsSearch]; got.Status != model.CoverageFailed {
		t.Errorf("slow source should fail with a timeout: %+v", got)
	}
	if len(records[model.SourceSECEdgar]) != 1 {
		t.Errorf("fast source records lost")
	}
}

func TestFetchAllSourceTimeoutReportedAsTimeout(t *testing.T) {
	// Default attempt budget: the deadline lands during retry backoff,
	// which must still surface as this source's timeout
	cfg := testConfig(model.SourceNewsSearch)
	cfg.Concurrency.SourceTimeout = 30 * time.Millisecond

	slow := &stubFetcher{id: model.SourceNewsSearch, applicable: true, delay: 5 * time.Second}

	orch := orchestratorOver(cfg, slow)
	_, coverage := orch.FetchAll(context.Background(), model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC"})

	got := coverage[model.SourceNewsSearch]
	if got.Status != model.CoverageFailed {
		t.Fatalf("slow source should fail, got %+v", got)
	}
	if !strings.HasPrefix(got.Reason, string(model.ReasonTimeout)) {
		t.Errorf("per-source deadline must report timeout, got %q", got.Reason)
	}
}
