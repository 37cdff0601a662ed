// Package report renders a finished dossier to JSON for machines and a
// plain-text report for analysts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// Renderer writes dossiers to files and the terminal
type Renderer struct {
	verbose bool
}

// NewRenderer creates a renderer
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// BaseName derives the output file stem from the subject and run date,
// e.g. "report_acme_llc_20260829"
func BaseName(d *model.Dossier) string {
	var b strings.Builder
	for _, r := range strings.ToLower(d.Subject.Name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
			b.WriteRune('_')
		}
	}
	stem := strings.Trim(b.String(), "_")
	if stem == "" {
		stem = "subject"
	}
	return fmt.Sprintf("report_%s_%s", stem, d.GeneratedAt.Format("20060102"))
}

// RenderJSON writes the full dossier as indented JSON
func (r *Renderer) RenderJSON(d *model.Dossier, path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dossier: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}

// RenderText writes the analyst report
func (r *Renderer) RenderText(d *model.Dossier, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(FormatText(d)), 0o644); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

// FormatText renders the dossier as the plain-text analyst report
func FormatText(d *model.Dossier) string {
	var b strings.Builder
	rule := strings.Repeat("=", 70)

	fmt.Fprintf(&b, "%s\nOSINT RESEARCH DOSSIER: %s\n%s\n", rule, strings.ToUpper(d.Subject.Name), rule)
	fmt.Fprintf(&b, "Run ID:    %s\n", d.RunID)
	fmt.Fprintf(&b, "Generated: %s\n", d.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Subject:   %s (%s", d.Subject.Name, d.Subject.Kind)
	if d.Subject.State != "" {
		fmt.Fprintf(&b, ", %s", d.Subject.State)
	}
	b.WriteString(")\n")

	b.WriteString("\nEXECUTIVE SUMMARY\n-----------------\n")
	fmt.Fprintf(&b, "Risk level:     %s (score %d/100)\n", d.Summary.RiskLevel, d.Summary.RiskScore)
	if d.Summary.OverallSeverity > 0 {
		fmt.Fprintf(&b, "Worst severity: %s\n", d.Summary.OverallSeverity)
	}
	fmt.Fprintf(&b, "Findings:       %d\n", d.Summary.FindingCount)
	fmt.Fprintf(&b, "Recommendation: %s\n", d.Summary.Recommendation)

	b.WriteString("\nENTITY\n------\n")
	fmt.Fprintf(&b, "ID:          %s\n", d.Entity.ID)
	fmt.Fprintf(&b, "Names:       %s\n", strings.Join(d.Entity.Names, "; "))
	if len(d.Entity.Identifiers) > 0 {
		var idents []string
		for _, key := range sortedKeys(d.Entity.Identifiers) {
			idents = append(idents, fmt.Sprintf("%s=%s", key, d.Entity.Identifiers[key]))
		}
		fmt.Fprintf(&b, "Identifiers: %s\n", strings.Join(idents, ", "))
	}
	fmt.Fprintf(&b, "Records:     %d\n", len(d.Entity.Records))

	if len(d.Findings) > 0 {
		b.WriteString("\nFINDINGS\n--------\n")
		for i, f := range d.Findings {
			fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, strings.ToUpper(f.Severity.String()), f.Category, f.Description)
			for _, ev := range f.Evidence {
				if ev.Detail != "" {
					fmt.Fprintf(&b, "   - %s: %s\n", ev.Source, ev.Detail)
				} else {
					fmt.Fprintf(&b, "   - %s (%s)\n", ev.Source, ev.Kind)
				}
			}
		}
	} else {
		b.WriteString("\nFINDINGS\n--------\nNo red flags identified.\n")
	}

	if len(d.RelatedEntities) > 0 {
		b.WriteString("\nRELATED ENTITIES\n----------------\n")
		for _, e := range d.RelatedEntities {
			fmt.Fprintf(&b, "- %s (%s)", strings.Join(e.Names, "; "), e.Kind)
			for _, rel := range e.Relationships {
				if rel.TargetID == d.Entity.ID {
					fmt.Fprintf(&b, " [%s]", rel.Type)
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nSOURCE COVERAGE\n---------------\n")
	for _, id := range sortedSourceIDs(d.Coverage) {
		status := d.Coverage[id]
		switch status.Status {
		case model.CoverageSucceeded:
			fmt.Fprintf(&b, "%-16s ok      %d records\n", id, status.Records)
		case model.CoverageSkipped:
			fmt.Fprintf(&b, "%-16s skipped %s\n", id, status.Reason)
		default:
			fmt.Fprintf(&b, "%-16s FAILED  %s\n", id, status.Reason)
		}
	}

	if len(d.Notes) > 0 {
		b.WriteString("\nNOTES\n-----\n")
		for _, note := range d.Notes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}

	if d.Narrative != "" {
		b.WriteString("\nNARRATIVE (LLM-generated, advisory only)\n----------------------------------------\n")
		b.WriteString(d.Narrative)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%s\nData from public records; accuracy depends on source coverage above.\n", rule)
	return b.String()
}

// RenderNarrative writes the LLM narrative to its own file so the factual
// report and the generated prose never mix on disk
func (r *Renderer) RenderNarrative(d *model.Dossier, path string) error {
	if d.Narrative == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	content := fmt.Sprintf("LLM-generated narrative for %s (advisory only)\n\n%s\n", d.Subject.Name, d.Narrative)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write narrative: %w", err)
	}
	return nil
}

// RenderSummary prints the condensed result to stdout
func (r *Renderer) RenderSummary(d *model.Dossier) {
	fmt.Printf("\n%s: %s (score %d/100, %d findings)\n", d.Subject.Name, d.Summary.RiskLevel, d.Summary.RiskScore, d.Summary.FindingCount)
	if r.verbose {
		for _, f := range d.Findings {
			fmt.Printf("  [%s] %s: %s\n", f.Severity, f.Category, f.Description)
		}
		for _, id := range sortedSourceIDs(d.Coverage) {
			status := d.Coverage[id]
			fmt.Printf("  %s: %s", id, status.Status)
			if status.Reason != "" {
				fmt.Printf(" (%s)", status.Reason)
			}
			fmt.Println()
		}
	}
	fmt.Printf("  %s\n", d.Summary.Recommendation)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSourceIDs(coverage map[model.SourceID]model.SourceStatus) []model.SourceID {
	ids := make([]model.SourceID, 0, len(coverage))
	for id := range coverage {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
