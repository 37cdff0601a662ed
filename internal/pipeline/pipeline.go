// Package pipeline orchestrates a research run: fan the subject out to the
// sources, resolve the returned records into entities, evaluate risk rules,
// and assemble the frozen dossier.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/blackwidowglobal/dossier/internal/cache"
	"github.com/blackwidowglobal/dossier/internal/llm"
	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/report"
	"github.com/blackwidowglobal/dossier/internal/resolve"
	"github.com/blackwidowglobal/dossier/internal/risk"
	"github.com/blackwidowglobal/dossier/internal/source"
	"github.com/blackwidowglobal/dossier/internal/source/adapters"
	"github.com/blackwidowglobal/dossier/internal/util"
	"github.com/blackwidowglobal/dossier/internal/worker"
)

// Pipeline owns the full research flow for one or more subjects
type Pipeline struct {
	orchestrator *Orchestrator
	resolver     *resolve.Resolver
	scorer       *risk.Scorer
	renderer     *report.Renderer
	narrator     *llm.Narrator // nil when disabled
	config       *model.Config
}

// NewPipeline wires the pipeline from configuration
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	narrator, err := llm.NewNarrator(cfg.LLM)
	if err != nil {
		// A broken LLM config degrades to no narrative rather than killing
		// the run
		fmt.Fprintf(os.Stderr, "Warning: LLM narrative disabled: %v\n", err)
	}

	limiter := worker.NewLimiterFromConfig(cfg)
	store := cache.FromConfig(cfg.Cache)
	client := source.NewClient(cfg.HTTP, limiter, store, cfg.Cache.TTL)
	robots := util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	breakers := worker.NewBreakerSet(0, 0)

	return &Pipeline{
		orchestrator: NewOrchestrator(adapters.All(client, robots), breakers, cfg),
		resolver:     resolve.New(cfg.Resolver),
		scorer:       risk.NewScorer(cfg.Risk),
		renderer:     report.NewRenderer(cfg.Output.Verbose),
		narrator:     narrator,
		config:       cfg,
	}, nil
}

// Research runs the full pipeline for one subject. Source failures are
// absorbed into the coverage map; the only errors returned are an invalid
// subject or a cancelled run.
func (p *Pipeline) Research(ctx context.Context, subject model.Subject) (*model.Dossier, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}

	if timeout := p.config.Concurrency.RunTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// 1. Fetch from every enabled source concurrently
	records, coverage := p.orchestrator.FetchAll(ctx, subject)
	if err := ctx.Err(); err != nil && len(records) == 0 {
		return nil, fmt.Errorf("research %q: %w", subject.Name, err)
	}

	// 2. Resolve raw records into canonical entities
	resolved := p.resolver.Resolve(subject, records)

	// 3. Evaluate risk rules and build the summary
	findings, summary := p.scorer.Evaluate(resolved)

	// 4. Assemble the frozen dossier
	dossier := assemble(subject, resolved, findings, summary, coverage)

	// 5. LLM narrative, after scoring so it can never influence it
	if p.narrator.Enabled() {
		narrative, err := p.narrator.Narrate(ctx, *dossier)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: narrative generation failed: %v\n", err)
		} else {
			dossier.Narrative = narrative
		}
	}

	return dossier, nil
}

// assemble freezes the run results into the dossier
func assemble(subject model.Subject, resolved *resolve.Result, findings []model.Finding, summary model.ExecutiveSummary, coverage map[model.SourceID]model.SourceStatus) *model.Dossier {
	notes := append([]string(nil), resolved.Notes...)
	sort.Strings(notes)

	return &model.Dossier{
		RunID:           uuid.NewString(),
		Subject:         subject,
		GeneratedAt:     time.Now().UTC(),
		Entity:          resolved.Primary,
		RelatedEntities: resolved.Related,
		Findings:        findings,
		Summary:         summary,
		Coverage:        coverage,
		Notes:           notes,
	}
}

// RenderDossier writes the dossier per the output configuration and prints
// the stdout summary
func (p *Pipeline) RenderDossier(d *model.Dossier) error {
	base := filepath.Join(p.config.Output.Dir, report.BaseName(d))

	if p.config.Output.Format == "json" || p.config.Output.Format == "both" {
		path := base + ".json"
		if err := p.renderer.RenderJSON(d, path); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if p.config.Output.Verbose {
			fmt.Printf("Wrote %s\n", path)
		}
	}

	if p.config.Output.Format == "text" || p.config.Output.Format == "both" {
		path := base + ".txt"
		if err := p.renderer.RenderText(d, path); err != nil {
			return fmt.Errorf("render text: %w", err)
		}
		if p.config.Output.Verbose {
			fmt.Printf("Wrote %s\n", path)
		}
	}

	if d.Narrative != "" {
		path := base + ".narrative.txt"
		if err := p.renderer.RenderNarrative(d, path); err != nil {
			return fmt.Errorf("render narrative: %w", err)
		}
		if p.config.Output.Verbose {
			fmt.Printf("Wrote %s\n", path)
		}
	}

	p.renderer.RenderSummary(d)
	return nil
}
