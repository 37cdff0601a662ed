// Package llm generates an optional narrative summary of a finished
// dossier. The narrative is presentation only: it is produced after scoring
// from the dossier's own findings and never feeds back into risk
// evaluation.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// Provider is the contract for narrative generation backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Narrate generates a narrative for the request
	Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error)
}

// NarrateRequest is the input for narrative generation
type NarrateRequest struct {
	// Dossier is the finished, scored dossier
	Dossier model.Dossier

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// NarrateResponse is the generated narrative
type NarrateResponse struct {
	Narrative  string
	Model      string
	TokensUsed int
}

// BuildPrompt renders the dossier into the narration prompt. The prompt
// carries every fact the model is allowed to use; anything not listed is
// off limits.
func BuildPrompt(d model.Dossier) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are writing a brief analyst narrative for an OSINT due-diligence dossier.

RULES:
1. Use ONLY the facts listed below. Do not add outside knowledge about the subject.
2. Do not speculate about guilt, intent, or facts not in the findings.
3. Describe what the public records show and what they do not cover.
4. Write 4-6 sentences, plain prose, no headings.

Subject: %s (%s)
Overall assessment: %s, risk score %d/100
`, d.Subject.Name, d.Subject.Kind, d.Summary.RiskLevel, d.Summary.RiskScore)

	if len(d.Entity.Names) > 1 {
		fmt.Fprintf(&b, "Known names: %s\n", strings.Join(d.Entity.Names, "; "))
	}

	b.WriteString("\nFindings:\n")
	if len(d.Findings) == 0 {
		b.WriteString("- none\n")
	}
	for i, f := range d.Findings {
		if i >= 15 {
			fmt.Fprintf(&b, "- ... and %d more\n", len(d.Findings)-15)
			break
		}
		fmt.Fprintf(&b, "- [%s/%s] %s\n", f.Category, f.Severity, f.Description)
	}

	b.WriteString("\nSource coverage:\n")
	for _, id := range sortedCoverage(d.Coverage) {
		status := d.Coverage[id]
		switch status.Status {
		case model.CoverageSucceeded:
			fmt.Fprintf(&b, "- %s: %d records\n", id, status.Records)
		default:
			fmt.Fprintf(&b, "- %s: %s (%s)\n", id, status.Status, status.Reason)
		}
	}

	b.WriteString("\nWrite the narrative now.")
	return b.String()
}

func sortedCoverage(coverage map[model.SourceID]model.SourceStatus) []model.SourceID {
	ids := make([]model.SourceID, 0, len(coverage))
	for id := range coverage {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
