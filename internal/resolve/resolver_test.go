package resolve

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
)

func testResolver() *Resolver {
	return New(model.ResolverConfig{SimilarityThreshold: 0.85, MaxDepth: 1})
}

func companySubject(name string) model.Subject {
	return model.Subject{Kind: model.SubjectCompany, Name: name, State: "DE"}
}

func registration(src model.SourceID, name string, idents map[string]string, attrs map[string]string, confidence float64) model.RawRecord {
	return model.RawRecord{
		SourceID:    src,
		Kind:        model.RecordRegistration,
		FetchedAt:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Name:        name,
		Identifiers: idents,
		Attributes:  attrs,
		Confidence:  confidence,
	}
}

func TestResolveMergesOnSharedIdentifier(t *testing.T) {
	records := map[model.SourceID][]model.RawRecord{
		model.SourceSECEdgar: {
			registration(model.SourceSECEdgar, "Acme LLC",
				map[string]string{model.IdentCIK: "0001234567"},
				map[string]string{"state_of_incorporation": "DE"}, 0.95),
		},
		model.SourceOpenCorporates: {
			registration(model.SourceOpenCorporates, "ACME, LLC",
				map[string]string{model.IdentCIK: "0001234567", model.IdentRegistry: "us_de/7156082"},
				map[string]string{"jurisdiction": "us_de"}, 0.85),
		},
	}

	result := testResolver().Resolve(companySubject("Acme LLC"), records)

	if len(result.Related) != 0 {
		t.Fatalf("expected single entity, got %d related", len(result.Related))
	}
	if got := len(result.Primary.Names); got != 2 {
		t.Fatalf("expected both names on primary, got %v", result.Primary.Names)
	}
	if !result.Primary.HasIdentifier(model.IdentCIK, "0001234567") {
		t.Errorf("primary lost the CIK identifier")
	}
	if !result.Primary.HasIdentifier(model.IdentRegistry, "us_de/7156082") {
		t.Errorf("primary lost the registry identifier")
	}
	if got := len(result.Primary.Records); got != 2 {
		t.Errorf("expected 2 record refs, got %d", got)
	}
}

func TestResolveMergesOnNameAndJurisdiction(t *testing.T) {
	// No shared identifier; merge rests on similar names plus matching
	// jurisdiction ("DE" vs "us_de")
	records := map[model.SourceID][]model.RawRecord{
		model.SourceSECEdgar: {
			registration(model.SourceSECEdgar, "Acme LLC",
				map[string]string{model.IdentCIK: "0001234567"},
				map[string]string{"state_of_incorporation": "DE"}, 0.95),
		},
		model.SourceOpenCorporates: {
			registration(model.SourceOpenCorporates, "ACME, LLC",
				map[string]string{model.IdentRegistry: "us_de/7156082"},
				map[string]string{"jurisdiction": "us_de"}, 0.85),
		},
	}

	result := testResolver().Resolve(companySubject("Acme LLC"), records)

	if len(result.Related) != 0 {
		t.Fatalf("expected single entity, got %d extra", len(result.Related))
	}
	if !result.Primary.HasIdentifier(model.IdentCIK, "0001234567") || !result.Primary.HasIdentifier(model.IdentRegistry, "us_de/7156082") {
		t.Errorf("merged entity should carry identifiers from both sources: %v", result.Primary.Identifiers)
	}
}

func TestResolveKeepsDistinctEntitiesApart(t *testing.T) {
	// Similar names but different jurisdictions and no shared identifier
	// must not merge
	records := map[model.SourceID][]model.RawRecord{
		model.SourceOpenCorporates: {
			registration(model.SourceOpenCorporates, "Acme LLC",
				map[string]string{model.IdentRegistry: "us_de/7156082"},
				map[string]string{"jurisdiction": "us_de"}, 0.85),
			registration(model.SourceOpenCorporates, "Acme LLC",
				map[string]string{model.IdentRegistry: "us_nv/E0001"},
				map[string]string{"jurisdiction": "us_nv"}, 0.85),
		},
	}

	result := testResolver().Resolve(companySubject("Acme LLC"), records)

	total := 1 + len(result.Related)
	if total != 1 {
		// The Nevada company is a separate cluster but shares no edge with
		// the primary, so it is not in Related either
		t.Fatalf("expected disconnected clusters, got %d related entities", len(result.Related))
	}
	if len(result.Primary.Records) != 1 {
		t.Errorf("distinct registrations merged into one entity: %d records", len(result.Primary.Records))
	}
}

func TestResolveOrderIndependence(t *testing.T) {
	sec := registration(model.SourceSECEdgar, "Acme LLC",
		map[string]string{model.IdentCIK: "0001234567"},
		map[string]string{"state_of_incorporation": "DE"}, 0.95)
	oc := registration(model.SourceOpenCorporates, "ACME, LLC",
		map[string]string{model.IdentCIK: "0001234567"},
		map[string]string{"jurisdiction": "us_de"}, 0.85)

	a := testResolver().Resolve(companySubject("Acme LLC"), map[model.SourceID][]model.RawRecord{
		model.SourceSECEdgar:       {sec},
		model.SourceOpenCorporates: {oc},
	})
	b := testResolver().Resolve(companySubject("Acme LLC"), map[model.SourceID][]model.RawRecord{
		model.SourceOpenCorporates: {oc},
		model.SourceSECEdgar:       {sec},
	})

	if a.Primary.ID != b.Primary.ID {
		t.Errorf("entity ID depends on input order: %s vs %s", a.Primary.ID, b.Primary.ID)
	}
	if len(a.Primary.Names) != len(b.Primary.Names) {
		t.Errorf("name sets differ across orderings")
	}
	for i, name := range a.Primary.Names {
		if b.Primary.Names[i] != name {
			t.Errorf("name order differs: %v vs %v", a.Primary.Names, b.Primary.Names)
		}
	}
}

func TestResolveWeakMentionAttachesToPrimary(t *testing.T) {
	news := model.RawRecord{
		SourceID:   model.SourceNewsSearch,
		Kind:       model.RecordNewsMention,
		FetchedAt:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Name:       "Acme LLC",
		Attributes: map[string]string{"headline": "Acme LLC under investigation", "sentiment": "adverse"},
		Confidence: 0.5,
	}
	stray := news
	stray.Name = "Unrelated Corp"
	stray.Attributes = map[string]string{"headline": "Unrelated Corp expands"}

	records := map[model.SourceID][]model.RawRecord{
		model.SourceSECEdgar: {
			registration(model.SourceSECEdgar, "Acme LLC",
				map[string]string{model.IdentCIK: "0001234567"},
				map[string]string{"state_of_incorporation": "DE"}, 0.95),
		},
		model.SourceNewsSearch: {news, stray},
	}

	result := testResolver().Resolve(companySubject("Acme LLC"), records)

	if got := len(result.Records[result.Primary.ID]); got != 2 {
		t.Errorf("expected news mention attached to primary, got %d records", got)
	}
	found := false
	for _, note := range result.Notes {
		if strings.Contains(note, "Unrelated Corp") {
			found = true
		}
	}
	if !found {
		t.Errorf("dropped mention should be noted, got %v", result.Notes)
	}
}

func TestResolveOfficerRelationDirection(t *testing.T) {
	company := registration(model.SourceOpenCorporates, "Acme LLC",
		map[string]string{model.IdentRegistry: "us_de/7156082"},
		map[string]string{"jurisdiction": "us_de"}, 0.85)
	company.Relations = []model.RawRelation{
		{Type: model.RelationOfficerOf, Name: "Jane Smith", Reverse: true},
	}

	result := testResolver().Resolve(companySubject("Acme LLC"), map[model.SourceID][]model.RawRecord{
		model.SourceOpenCorporates: {company},
	})

	if len(result.Primary.Relationships) != 0 {
		t.Errorf("officer edge should point at the company, not away from it: %v", result.Primary.Relationships)
	}
	if len(result.Related) != 1 {
		t.Fatalf("expected officer as related entity, got %d", len(result.Related))
	}
	officer := result.Related[0]
	if officer.Kind != model.SubjectPerson {
		t.Errorf("officer kind = %s, want person", officer.Kind)
	}
	if len(officer.Relationships) != 1 || officer.Relationships[0].Type != model.RelationOfficerOf ||
		officer.Relationships[0].TargetID != result.Primary.ID {
		t.Errorf("officer should hold officer-of edge to primary, got %v", officer.Relationships)
	}
}

func TestResolveAttributePrecedence(t *testing.T) {
	early := registration(model.SourceOpenCorporates, "Acme LLC",
		map[string]string{model.IdentCIK: "0001234567"},
		map[string]string{"sic_description": "Industrial Machinery"}, 0.85)
	late := registration(model.SourceSECEdgar, "Acme LLC",
		map[string]string{model.IdentCIK: "0001234567"},
		map[string]string{"sic_description": "Prepackaged Software"}, 0.95)

	result := testResolver().Resolve(companySubject("Acme LLC"), map[model.SourceID][]model.RawRecord{
		model.SourceOpenCorporates: {early},
		model.SourceSECEdgar:       {late},
	})

	attr, ok := result.Primary.Attributes["sic_description"]
	if !ok {
		t.Fatalf("sic_description missing from folded attributes")
	}
	if attr.Value != "Prepackaged Software" || attr.Source != model.SourceSECEdgar {
		t.Errorf("higher-confidence value should win, got %q from %s", attr.Value, attr.Source)
	}
	if len(attr.Superseded) != 1 || attr.Superseded[0].Value != "Industrial Machinery" {
		t.Errorf("losing value should be retained as superseded, got %v", attr.Superseded)
	}
}

func TestResolveNoRecordsYieldsBareEntity(t *testing.T) {
	result := testResolver().Resolve(companySubject("Ghost Holdings LLC"), nil)

	if result.Primary.ID == "" {
		t.Fatalf("primary entity must exist even with no records")
	}
	if len(result.Primary.Names) != 1 || result.Primary.Names[0] != "Ghost Holdings LLC" {
		t.Errorf("bare primary should carry the subject name, got %v", result.Primary.Names)
	}
	if len(result.Notes) == 0 {
		t.Errorf("unresolved subject should be noted")
	}
}

func TestEntityIDStableAcrossRuns(t *testing.T) {
	rec := registration(model.SourceSECEdgar, "Acme LLC",
		map[string]string{model.IdentCIK: "0001234567"},
		map[string]string{"state_of_incorporation": "DE"}, 0.95)

	a := testResolver().Resolve(companySubject("Acme LLC"), map[model.SourceID][]model.RawRecord{model.SourceSECEdgar: {rec}})
	b := testResolver().Resolve(companySubject("Acme LLC"), map[model.SourceID][]model.RawRecord{model.SourceSECEdgar: {rec}})

	if a.Primary.ID != b.Primary.ID {
		t.Errorf("entity ID changed between identical runs: %s vs %s", a.Primary.ID, b.Primary.ID)
	}
	if !strings.HasPrefix(a.Primary.ID, "ent:") {
		t.Errorf("entity ID should carry the ent: prefix, got %s", a.Primary.ID)
	}
}
