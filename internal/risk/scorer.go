// Package risk evaluates resolved entities against a fixed rule set and
// condenses the findings into an executive summary. Evaluation is
// deterministic: identical entity graphs produce identical findings in
// identical order.
package risk

import (
	"sort"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/resolve"
)

// Severity weights for the 0-100 risk score
const (
	weightLow      = 5
	weightMedium   = 15
	weightHigh     = 30
	weightCritical = 40
	scoreCap       = 100
)

// Risk level thresholds over the weighted score
const (
	levelHighAt   = 70
	levelMediumAt = 40
	levelLowAt    = 20
)

// Scorer runs the built-in rules and produces the executive summary
type Scorer struct {
	cfg   model.RiskConfig
	rules []rule
}

// NewScorer creates a scorer with the built-in rule set
func NewScorer(cfg model.RiskConfig) *Scorer {
	return &Scorer{cfg: cfg, rules: builtinRules()}
}

// Evaluate scores every resolved entity and summarizes the findings
func (s *Scorer) Evaluate(result *resolve.Result) ([]model.Finding, model.ExecutiveSummary) {
	var cutoff time.Time
	if s.cfg.RecentYears > 0 {
		cutoff = time.Now().UTC().AddDate(-s.cfg.RecentYears, 0, 0)
	}

	// 1. Evaluate rules per entity, primary first then related in ID order
	entities := make([]*model.CanonicalEntity, 0, 1+len(result.Related))
	entities = append(entities, &result.Primary)
	for i := range result.Related {
		entities = append(entities, &result.Related[i])
	}

	officerTargets := make(map[string]bool)
	for _, e := range entities {
		for _, rel := range e.Relationships {
			if rel.Type == model.RelationOfficerOf {
				officerTargets[rel.TargetID] = true
			}
		}
	}

	var findings []model.Finding
	for _, entity := range entities {
		ctx := ruleContext{
			entity:       entity,
			records:      result.Records[entity.ID],
			hasOfficers:  officerTargets[entity.ID],
			recentCutoff: cutoff,
		}
		for _, r := range s.rules {
			findings = append(findings, r(ctx)...)
		}
	}

	// 2. Deterministic order: severity descending, then category, then
	// description
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity > findings[j].Severity
		}
		if findings[i].Category != findings[j].Category {
			return findings[i].Category < findings[j].Category
		}
		return findings[i].Description < findings[j].Description
	})

	return findings, s.summarize(findings)
}

// summarize applies category escalation and computes the weighted score
func (s *Scorer) summarize(findings []model.Finding) model.ExecutiveSummary {
	summary := model.ExecutiveSummary{FindingCount: len(findings)}

	// 3. Per-category effective severity with escalation: enough medium
	// findings in one category bump it a level
	categorySeverity := make(map[model.Category]model.Severity)
	mediumCounts := make(map[model.Category]int)
	for _, f := range findings {
		if f.Severity > categorySeverity[f.Category] {
			categorySeverity[f.Category] = f.Severity
		}
		if f.Severity == model.SeverityMedium {
			mediumCounts[f.Category]++
		}
	}
	threshold := s.cfg.EscalationCount
	if threshold <= 0 {
		threshold = 3
	}
	for cat, count := range mediumCounts {
		if count >= threshold {
			categorySeverity[cat] = categorySeverity[cat].Escalate()
		}
	}

	// 4. Overall severity is the worst effective category severity
	for _, sev := range categorySeverity {
		if sev > summary.OverallSeverity {
			summary.OverallSeverity = sev
		}
	}
	if len(categorySeverity) > 0 {
		summary.CategorySeverity = categorySeverity
	}

	// 5. Weighted score, capped
	counts := make(map[string]int)
	score := 0
	for _, f := range findings {
		counts[f.Severity.String()]++
		switch f.Severity {
		case model.SeverityLow:
			score += weightLow
		case model.SeverityMedium:
			score += weightMedium
		case model.SeverityHigh:
			score += weightHigh
		case model.SeverityCritical:
			score += weightCritical
		}
	}
	if score > scoreCap {
		score = scoreCap
	}
	summary.RiskScore = score
	if len(counts) > 0 {
		summary.CountsBySeverity = counts
	}

	// 6. Risk level and recommendation
	switch {
	case score >= levelHighAt:
		summary.RiskLevel = "HIGH RISK"
		summary.Recommendation = "Significant red flags identified. Enhanced due diligence strongly recommended before any engagement."
	case score >= levelMediumAt:
		summary.RiskLevel = "MEDIUM RISK"
		summary.Recommendation = "Notable concerns identified. Additional investigation recommended before proceeding."
	case score >= levelLowAt:
		summary.RiskLevel = "LOW RISK"
		summary.Recommendation = "Minor issues identified. Standard due diligence should be sufficient."
	default:
		summary.RiskLevel = "MINIMAL RISK"
		summary.Recommendation = "No significant red flags identified in available public records."
	}

	return summary
}
