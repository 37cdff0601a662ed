package pipeline

import (
	"context"
	"sort"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/worker"
)

// BatchResult is the outcome for one subject in a batch run
type BatchResult struct {
	Index   int
	Subject model.Subject
	Dossier *model.Dossier
	Err     error
}

func (r *BatchResult) GetError() error { return r.Err }

type batchJob struct {
	pipeline *Pipeline
	subject  model.Subject
	index    int
}

func (j *batchJob) Execute(ctx context.Context) worker.Result {
	dossier, err := j.pipeline.Research(ctx, j.subject)
	return &BatchResult{Index: j.index, Subject: j.subject, Dossier: dossier, Err: err}
}

// ResearchBatch runs the pipeline for every subject with bounded
// concurrency. One failed subject does not abort the others; results come
// back in input order.
func (p *Pipeline) ResearchBatch(ctx context.Context, subjects []model.Subject, workers int) []BatchResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(subjects) {
		workers = len(subjects)
	}

	pool := worker.NewPool(ctx, workers)
	pool.Start()
	for i, subject := range subjects {
		pool.Submit(&batchJob{pipeline: p, subject: subject, index: i})
	}

	results := make([]BatchResult, 0, len(subjects))
	for _, r := range pool.Wait() {
		results = append(results, *r.(*BatchResult))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}
