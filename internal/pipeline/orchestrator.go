package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/source"
	"github.com/blackwidowglobal/dossier/internal/worker"
)

// Orchestrator fans one subject out to every enabled source through the
// worker pool. Each source gets its own timeout, retry budget, and circuit
// breaker; one slow or failing provider never blocks the others.
type Orchestrator struct {
	fetchers map[model.SourceID]source.Fetcher
	retry    *worker.RetryPolicy
	breakers *worker.BreakerSet
	cfg      *model.Config
}

// NewOrchestrator creates an orchestrator over the given fetchers
func NewOrchestrator(fetchers []source.Fetcher, breakers *worker.BreakerSet, cfg *model.Config) *Orchestrator {
	byID := make(map[model.SourceID]source.Fetcher, len(fetchers))
	for _, f := range fetchers {
		byID[f.ID()] = f
	}
	return &Orchestrator{
		fetchers: byID,
		retry:    worker.NewRetryPolicy(cfg.Retry),
		breakers: breakers,
		cfg:      cfg,
	}
}

// fetchJob is one source fetch submitted to the pool
type fetchJob struct {
	fetcher source.Fetcher
	subject model.Subject
	cfg     model.SourceConfig
	orch    *Orchestrator
}

// fetchResult is the outcome of one source fetch
type fetchResult struct {
	id       model.SourceID
	records  []model.RawRecord
	attempts int
	err      error
}

func (r *fetchResult) GetError() error { return r.err }

// Execute runs the fetch under the per-source timeout with retry and the
// breaker wrapped around the provider call
func (j *fetchJob) Execute(ctx context.Context) worker.Result {
	id := j.fetcher.ID()

	sourceCtx := ctx
	if timeout := j.orch.cfg.Concurrency.SourceTimeout; timeout > 0 {
		var cancel context.CancelFunc
		sourceCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	records, attempts, err := j.orch.retry.Do(sourceCtx, id, func(ctx context.Context) ([]model.RawRecord, error) {
		return j.orch.breakers.Execute(ctx, id, func(ctx context.Context) ([]model.RawRecord, error) {
			return j.fetcher.Fetch(ctx, j.subject, j.cfg)
		})
	})

	return &fetchResult{id: id, records: records, attempts: attempts, err: err}
}

// FetchAll queries every enabled source for the subject. It returns the
// records grouped by source plus a coverage entry for every enabled source,
// including the ones that were skipped or failed. A total source failure is
// not an error; the caller sees it in the coverage map.
func (o *Orchestrator) FetchAll(ctx context.Context, subject model.Subject) (map[model.SourceID][]model.RawRecord, map[model.SourceID]model.SourceStatus) {
	records := make(map[model.SourceID][]model.RawRecord)
	coverage := make(map[model.SourceID]model.SourceStatus)

	pool := worker.NewPool(ctx, o.cfg.Concurrency.FetchWorkers)
	pool.Start()

	submitted := 0
	for _, id := range o.cfg.EnabledSources() {
		fetcher, ok := o.fetchers[id]
		if !ok {
			coverage[id] = model.SourceStatus{Status: model.CoverageSkipped, Reason: "no fetcher registered"}
			continue
		}
		if !fetcher.Applicable(subject) {
			coverage[id] = model.SourceStatus{
				Status: model.CoverageSkipped,
				Reason: fmt.Sprintf("not applicable to %s subjects", subject.Kind),
			}
			continue
		}
		pool.Submit(&fetchJob{fetcher: fetcher, subject: subject, cfg: o.cfg.Source(id), orch: o})
		submitted++
	}

	for _, result := range pool.Wait() {
		r := result.(*fetchResult)
		if r.err != nil {
			coverage[r.id] = model.SourceStatus{Status: model.CoverageFailed, Reason: failureReason(r.err)}
			continue
		}
		records[r.id] = r.records
		coverage[r.id] = model.SourceStatus{Status: model.CoverageSucceeded, Records: len(r.records)}
	}

	// Jobs dropped by pool cancellation still need a coverage entry
	for _, id := range o.cfg.EnabledSources() {
		if _, ok := coverage[id]; !ok {
			coverage[id] = model.SourceStatus{Status: model.CoverageFailed, Reason: string(model.ReasonCancelled)}
		}
	}

	return records, coverage
}

// SortedCoverageIDs returns the coverage keys in stable order for rendering
func SortedCoverageIDs(coverage map[model.SourceID]model.SourceStatus) []model.SourceID {
	ids := make([]model.SourceID, 0, len(coverage))
	for id := range coverage {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// failureReason flattens a fetch error into the coverage reason string
func failureReason(err error) string {
	var failure *model.SourceFailure
	if errors.As(err, &failure) {
		if failure.Detail != "" {
			return fmt.Sprintf("%s: %s", failure.Reason, failure.Detail)
		}
		return string(failure.Reason)
	}
	return err.Error()
}
