package model

import "time"

// CoverageStatus reports what happened to one enabled source during a run
type CoverageStatus string

const (
	CoverageSucceeded CoverageStatus = "succeeded"
	CoverageFailed    CoverageStatus = "failed"
	CoverageSkipped   CoverageStatus = "skipped"
)

// SourceStatus is the coverage entry for one source. Every enabled source
// appears in Dossier.Coverage exactly once.
type SourceStatus struct {
	Status  CoverageStatus `json:"status"`
	Records int            `json:"records"`
	Reason  string         `json:"reason,omitempty"` // Failure or skip reason
}

// ExecutiveSummary condenses the findings for the top of the report
type ExecutiveSummary struct {
	OverallSeverity  Severity              `json:"overall_severity"`       // Max effective severity, 0 when no findings
	RiskScore        int                   `json:"risk_score"`             // Weighted 0-100
	RiskLevel        string                `json:"risk_level"`             // HIGH RISK, MEDIUM RISK, LOW RISK, MINIMAL RISK
	Recommendation   string                `json:"recommendation"`
	FindingCount     int                   `json:"finding_count"`
	CountsBySeverity map[string]int        `json:"counts_by_severity,omitempty"`
	CategorySeverity map[Category]Severity `json:"category_severity,omitempty"` // Effective severity after escalation
}

// Dossier is the frozen result of one research run, handed to renderers.
// Ordering of findings, related entities, and coverage keys is deterministic
// for identical inputs regardless of fetch timing.
type Dossier struct {
	RunID           string                    `json:"run_id"`
	Subject         Subject                   `json:"subject"`
	GeneratedAt     time.Time                 `json:"generated_at"`
	Entity          CanonicalEntity           `json:"entity"` // Primary resolved entity
	RelatedEntities []CanonicalEntity         `json:"related_entities,omitempty"`
	Findings        []Finding                 `json:"findings,omitempty"`
	Summary         ExecutiveSummary          `json:"summary"`
	Coverage        map[SourceID]SourceStatus `json:"source_coverage"`
	Notes           []string                  `json:"notes,omitempty"`     // Resolution notes (dropped records, low-confidence merges)
	Narrative       string                    `json:"narrative,omitempty"` // Optional LLM summary; never feeds back into scoring
}
