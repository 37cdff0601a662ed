package risk

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// politicalExposureThreshold is the aggregate contribution total above which
// political exposure is flagged, in dollars
const politicalExposureThreshold = 50000.0

// civilCaseThreshold is the civil case count that by itself suggests a
// litigious history
const civilCaseThreshold = 3

// enforcementForms are SEC filing form types that signal regulatory action
// against the registrant rather than routine disclosure
var enforcementForms = map[string]bool{
	"25-NSE":     true, // Exchange-initiated delisting
	"REVOKED":    true,
	"SUSPENSION": true,
	"ORDER":      true,
}

// ruleContext is everything a rule may inspect for one entity
type ruleContext struct {
	entity       *model.CanonicalEntity
	records      []model.RawRecord
	hasOfficers  bool      // Any officer-of edge points at this entity
	recentCutoff time.Time // Dated records older than this are ignored
}

// rule evaluates one risk pattern against an entity and returns zero or
// more findings
type rule func(ruleContext) []model.Finding

// builtinRules returns the rule set in a fixed order
func builtinRules() []rule {
	return []rule{
		criminalLitigation,
		bankruptcyProceedings,
		civilLitigationVolume,
		activeLiens,
		secEnforcement,
		adverseMedia,
		politicalExposure,
		shellIndicators,
	}
}

// criminalLitigation flags court records where the entity appears as a
// criminal defendant
func criminalLitigation(c ruleContext) []model.Finding {
	var evidence []model.RecordRef
	var names []string
	for _, rec := range courtRecords(c) {
		if rec.Attributes["case_type"] != "criminal" || rec.Attributes["party_role"] != "defendant" {
			continue
		}
		evidence = append(evidence, evidenceRef(rec))
		names = append(names, rec.Attributes["case_name"])
	}
	if len(evidence) == 0 {
		return nil
	}
	return []model.Finding{{
		Category:    model.CategoryLitigation,
		Severity:    model.SeverityHigh,
		Rule:        "criminal-litigation",
		Description: fmt.Sprintf("named as defendant in %d criminal proceeding(s): %s", len(evidence), strings.Join(names, "; ")),
		EntityID:    c.entity.ID,
		Evidence:    evidence,
		Confidence:  minConfidence(c, model.RecordCourtCase),
	}}
}

// bankruptcyProceedings flags any bankruptcy case involving the entity
func bankruptcyProceedings(c ruleContext) []model.Finding {
	var evidence []model.RecordRef
	for _, rec := range courtRecords(c) {
		if rec.Attributes["case_type"] == "bankruptcy" {
			evidence = append(evidence, evidenceRef(rec))
		}
	}
	if len(evidence) == 0 {
		return nil
	}
	return []model.Finding{{
		Category:    model.CategoryLitigation,
		Severity:    model.SeverityHigh,
		Rule:        "bankruptcy-proceedings",
		Description: fmt.Sprintf("party to %d bankruptcy proceeding(s)", len(evidence)),
		EntityID:    c.entity.ID,
		Evidence:    evidence,
		Confidence:  minConfidence(c, model.RecordCourtCase),
	}}
}

// civilLitigationVolume flags an unusually litigious record
func civilLitigationVolume(c ruleContext) []model.Finding {
	var evidence []model.RecordRef
	for _, rec := range courtRecords(c) {
		if rec.Attributes["case_type"] == "civil" {
			evidence = append(evidence, evidenceRef(rec))
		}
	}
	if len(evidence) <= civilCaseThreshold {
		return nil
	}
	return []model.Finding{{
		Category:    model.CategoryLitigation,
		Severity:    model.SeverityMedium,
		Rule:        "civil-litigation-volume",
		Description: fmt.Sprintf("party to %d civil cases (threshold %d)", len(evidence), civilCaseThreshold),
		EntityID:    c.entity.ID,
		Evidence:    evidence,
		Confidence:  minConfidence(c, model.RecordCourtCase),
	}}
}

// activeLiens flags confirmed active UCC filings. Pointer records that only
// direct the analyst to a state portal do not fire.
func activeLiens(c ruleContext) []model.Finding {
	var evidence []model.RecordRef
	for _, rec := range c.records {
		if rec.Kind != model.RecordLien || rec.Attributes["status"] != "active" {
			continue
		}
		evidence = append(evidence, evidenceRef(rec))
	}
	if len(evidence) == 0 {
		return nil
	}
	return []model.Finding{{
		Category:    model.CategoryLiens,
		Severity:    model.SeverityMedium,
		Rule:        "active-liens",
		Description: fmt.Sprintf("%d active UCC lien(s) on record", len(evidence)),
		EntityID:    c.entity.ID,
		Evidence:    evidence,
		Confidence:  minConfidence(c, model.RecordLien),
	}}
}

// secEnforcement flags filings whose form type indicates regulatory action
func secEnforcement(c ruleContext) []model.Finding {
	var evidence []model.RecordRef
	var forms []string
	for _, rec := range c.records {
		if rec.Kind != model.RecordFiling {
			continue
		}
		form := strings.ToUpper(rec.Attributes["form"])
		if enforcementForms[form] || strings.Contains(form, "ORDER") {
			evidence = append(evidence, evidenceRef(rec))
			forms = append(forms, form)
		}
	}
	if len(evidence) == 0 {
		return nil
	}
	return []model.Finding{{
		Category:    model.CategoryRegulatory,
		Severity:    model.SeverityHigh,
		Rule:        "sec-enforcement",
		Description: fmt.Sprintf("SEC filing(s) indicating regulatory action: %s", strings.Join(forms, ", ")),
		EntityID:    c.entity.ID,
		Evidence:    evidence,
		Confidence:  minConfidence(c, model.RecordFiling),
	}}
}

// adverseMedia flags news coverage tagged with adverse keywords. A single
// adverse mention without identified keywords is only a low signal.
func adverseMedia(c ruleContext) []model.Finding {
	var evidence []model.RecordRef
	keywords := make(map[string]bool)
	untagged := 0
	for _, rec := range c.records {
		if rec.Kind != model.RecordNewsMention || rec.Attributes["sentiment"] != "adverse" {
			continue
		}
		evidence = append(evidence, evidenceRef(rec))
		kws := rec.Attributes["adverse_keywords"]
		if kws == "" {
			untagged++
			continue
		}
		for _, kw := range strings.Split(kws, ",") {
			keywords[kw] = true
		}
	}
	if len(evidence) == 0 {
		return nil
	}

	severity := model.SeverityMedium
	if len(evidence) == 1 && untagged == 1 {
		severity = model.SeverityLow
	}

	sorted := make([]string, 0, len(keywords))
	for kw := range keywords {
		sorted = append(sorted, kw)
	}
	sort.Strings(sorted)

	desc := fmt.Sprintf("%d adverse media mention(s)", len(evidence))
	if len(sorted) > 0 {
		desc += fmt.Sprintf(" (keywords: %s)", strings.Join(sorted, ", "))
	}
	return []model.Finding{{
		Category:    model.CategoryAdverseMedia,
		Severity:    severity,
		Rule:        "adverse-media",
		Description: desc,
		EntityID:    c.entity.ID,
		Evidence:    evidence,
		Confidence:  minConfidence(c, model.RecordNewsMention),
	}}
}

// politicalExposure flags aggregate campaign contributions above the
// significance threshold
func politicalExposure(c ruleContext) []model.Finding {
	for _, rec := range c.records {
		if rec.Kind != model.RecordContribution || rec.Attributes["aggregate"] != "true" {
			continue
		}
		total, err := strconv.ParseFloat(rec.Attributes["total_amount"], 64)
		if err != nil || total <= politicalExposureThreshold {
			continue
		}
		return []model.Finding{{
			Category:    model.CategoryPolitical,
			Severity:    model.SeverityMedium,
			Rule:        "political-exposure",
			Description: fmt.Sprintf("aggregate federal campaign contributions of $%.2f exceed $%.0f", total, politicalExposureThreshold),
			EntityID:    c.entity.ID,
			Evidence:    []model.RecordRef{evidenceRef(rec)},
			Confidence:  rec.Confidence,
		}}
	}
	return nil
}

// shellIndicators flags registry signals of a dormant or opaque structure:
// an inactive or dissolved registration, or a registered company with no
// officers on record
func shellIndicators(c ruleContext) []model.Finding {
	var findings []model.Finding
	registered := false
	for _, rec := range c.records {
		if rec.Kind != model.RecordRegistration {
			continue
		}
		if rec.SourceID == model.SourceOpenCorporates {
			registered = true
		}
		status := strings.ToLower(rec.Attributes["status"])
		if status == "inactive" || status == "dissolved" {
			findings = append(findings, model.Finding{
				Category:    model.CategoryOwnership,
				Severity:    model.SeverityLow,
				Rule:        "shell-indicators",
				Description: fmt.Sprintf("registry status %q reported by %s", status, rec.SourceID),
				EntityID:    c.entity.ID,
				Evidence:    []model.RecordRef{evidenceRef(rec)},
				Confidence:  rec.Confidence,
			})
		}
	}

	if registered && c.entity.Kind == model.SubjectCompany && !c.hasOfficers {
		findings = append(findings, model.Finding{
			Category:    model.CategoryOwnership,
			Severity:    model.SeverityLow,
			Rule:        "shell-indicators",
			Description: "registered company with no officers on record",
			EntityID:    c.entity.ID,
			Confidence:  0.5,
		})
	}
	return findings
}

// courtRecords filters the entity's records to court cases inside the
// lookback window. Undated records are kept.
func courtRecords(c ruleContext) []model.RawRecord {
	var out []model.RawRecord
	for _, rec := range c.records {
		if rec.Kind != model.RecordCourtCase {
			continue
		}
		if filed := rec.Attributes["date_filed"]; filed != "" && !c.recentCutoff.IsZero() {
			if t, err := time.Parse("2006-01-02", filed); err == nil && t.Before(c.recentCutoff) {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// minConfidence returns the lowest confidence among the entity's records of
// the given kind, the conservative bound for a finding built on them
func minConfidence(c ruleContext, kind model.RecordKind) float64 {
	min := 0.0
	for _, rec := range c.records {
		if rec.Kind != kind {
			continue
		}
		if min == 0 || rec.Confidence < min {
			min = rec.Confidence
		}
	}
	return min
}

func evidenceRef(rec model.RawRecord) model.RecordRef {
	ref := model.RecordRef{Source: rec.SourceID, Kind: rec.Kind, FetchedAt: rec.FetchedAt}
	switch rec.Kind {
	case model.RecordCourtCase:
		ref.Detail = rec.Attributes["case_name"]
	case model.RecordNewsMention:
		ref.Detail = rec.Attributes["headline"]
	case model.RecordFiling:
		ref.Detail = rec.Attributes["form"]
	case model.RecordContribution:
		ref.Detail = rec.Attributes["committee"]
	}
	return ref
}
