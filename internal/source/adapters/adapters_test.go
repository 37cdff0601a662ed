package adapters

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blackwidowglobal/dossier/internal/cache"
	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/source"
	"github.com/blackwidowglobal/dossier/internal/util"
	"github.com/blackwidowglobal/dossier/internal/worker"
)

func testClient() *source.Client {
	return source.NewClient(model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "dossier-test",
		MaxBodyBytes: 1 << 20,
	}, worker.NewLimiter(1000, 100), cache.Nop{}, time.Minute)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Acme LLC", "Acme LLC"},
		{"United States v. <mark>Acme</mark> LLC", "United States v. Acme LLC"},
		{"  plain  ", "plain"},
	}
	for _, tt := range tests {
		if got := stripHTML(tt.in); got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSECEdgar_Fetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"0":{"cik_str":320193,"ticker":"ACME","title":"Acme LLC"}}`))
	})
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"name": "ACME LLC",
			"sic": "3571",
			"sicDescription": "Electronic Computers",
			"stateOfIncorporation": "DE",
			"tickers": ["ACME"],
			"formerNames": [{"name": "Acme Computer Inc"}],
			"filings": {"recent": {
				"form": ["10-K", "8-K"],
				"filingDate": ["2026-02-01", "2026-01-15"],
				"accessionNumber": ["0000320193-26-000001", "0000320193-26-000002"]
			}}
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	adapter := NewSECEdgar(testClient())
	subject := model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC", State: "DE"}

	records, err := adapter.Fetch(context.Background(), subject, model.SourceConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// 1 registration + 1 former name + 2 filings
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	reg := records[0]
	if reg.Kind != model.RecordRegistration {
		t.Errorf("first record should be a registration, got %s", reg.Kind)
	}
	if reg.Identifiers[model.IdentCIK] != "320193" {
		t.Errorf("expected CIK 320193, got %q", reg.Identifiers[model.IdentCIK])
	}
	if reg.Attributes["state_of_incorporation"] != "DE" {
		t.Errorf("expected DE incorporation, got %q", reg.Attributes["state_of_incorporation"])
	}

	if records[1].Name != "Acme Computer Inc" || records[1].Identifiers[model.IdentCIK] != "320193" {
		t.Error("former name should carry the same CIK for merging")
	}
}

func TestSECEdgar_GzippedSubmissions(t *testing.T) {
	// data.sec.gov compresses whenever the client advertises gzip support;
	// the decoded JSON must still come through
	gzipJSON := func(w http.ResponseWriter, r *http.Request, payload string) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			w.Write([]byte(payload))
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(payload))
		gz.Close()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		gzipJSON(w, r, `{"0":{"cik_str":320193,"ticker":"ACME","title":"Acme LLC"}}`)
	})
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		gzipJSON(w, r, `{"name":"ACME LLC","stateOfIncorporation":"DE","tickers":["ACME"]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	adapter := NewSECEdgar(testClient())
	subject := model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC", State: "DE"}

	records, err := adapter.Fetch(context.Background(), subject, model.SourceConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("fetch against gzipping server: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Attributes["state_of_incorporation"] != "DE" {
		t.Errorf("registration not decoded, got %+v", records[0].Attributes)
	}
}

func TestSECEdgar_NotApplicableForUnaffiliatedPerson(t *testing.T) {
	adapter := NewSECEdgar(testClient())
	if adapter.Applicable(model.Subject{Kind: model.SubjectPerson, Name: "John Smith"}) {
		t.Error("person with no company affiliation should not hit EDGAR")
	}
	if !adapter.Applicable(model.Subject{Kind: model.SubjectPerson, Name: "John Smith", Company: "Acme"}) {
		t.Error("person with affiliation should hit EDGAR")
	}
}

func TestOpenCorporates_CompanySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/companies/search" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("jurisdiction_code"); got != "us_de" {
			t.Errorf("expected jurisdiction us_de, got %q", got)
		}
		w.Write([]byte(`{"results":{"companies":[{"company":{
			"name":"ACME, LLC","company_number":"7156082","jurisdiction_code":"us_de",
			"current_status":"Active","incorporation_date":"2015-03-02",
			"registered_address_in_full":"251 Little Falls Drive, Wilmington, DE",
			"officers":[{"officer":{"name":"Jane Roe","position":"director"}}]
		}}]}}`))
	}))
	defer srv.Close()

	adapter := NewOpenCorporates(testClient())
	subject := model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC", State: "DE"}

	records, err := adapter.Fetch(context.Background(), subject, model.SourceConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Identifiers[model.IdentRegistry] != "us_de/7156082" {
		t.Errorf("expected registry identifier us_de/7156082, got %q", rec.Identifiers[model.IdentRegistry])
	}
	if len(rec.Relations) != 1 || rec.Relations[0].Type != model.RelationOfficerOf || !rec.Relations[0].Reverse {
		t.Errorf("expected reversed officer-of relation, got %+v", rec.Relations)
	}
}

func TestFECDonations_AggregatesTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[
			{"contributor_name":"SMITH, JOHN","contributor_employer":"ACME LLC","contribution_receipt_amount":30000,"contribution_receipt_date":"2025-06-01","committee":{"name":"Some PAC"}},
			{"contributor_name":"SMITH, JOHN","contributor_employer":"ACME LLC","contribution_receipt_amount":25000,"contribution_receipt_date":"2025-09-01","committee":{"name":"Other PAC"}}
		]}`))
	}))
	defer srv.Close()

	adapter := NewFECDonations(testClient())
	subject := model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC"}

	records, err := adapter.Fetch(context.Background(), subject, model.SourceConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 2 contributions + 1 aggregate, got %d", len(records))
	}

	agg := records[len(records)-1]
	if agg.Attributes["aggregate"] != "true" {
		t.Fatal("last record should be the aggregate")
	}
	if agg.Attributes["total_amount"] != "55000.00" {
		t.Errorf("expected total 55000.00, got %q", agg.Attributes["total_amount"])
	}
}

func TestCourtRecords_CaseClassification(t *testing.T) {
	tests := []struct {
		court, nos, want string
	}{
		{"nysd", "Contract dispute", "civil"},
		{"nysdcr", "", "criminal"},
		{"casb bk", "bankruptcy chapter 11", "bankruptcy"},
		{"ded", "criminal prosecution", "criminal"},
	}
	for _, tt := range tests {
		if got := caseType(tt.court, tt.nos); got != tt.want {
			t.Errorf("caseType(%q, %q) = %q, want %q", tt.court, tt.nos, got, tt.want)
		}
	}
}

func TestCourtRecords_PartyRole(t *testing.T) {
	tests := []struct {
		caseName, subject, want string
	}{
		{"United States v. Acme LLC", "Acme LLC", "defendant"},
		{"Acme LLC v. Widget Corp", "Acme LLC", "plaintiff"},
		{"In re Acme LLC", "Acme LLC", "unknown"},
		{"Smith v. Jones", "Acme LLC", "unknown"},
	}
	for _, tt := range tests {
		if got := partyRole(tt.caseName, tt.subject); got != tt.want {
			t.Errorf("partyRole(%q, %q) = %q, want %q", tt.caseName, tt.subject, got, tt.want)
		}
	}
}

func TestUCCFilings_SkipsPersons(t *testing.T) {
	adapter := NewUCCFilings(testClient())
	if adapter.Applicable(model.Subject{Kind: model.SubjectPerson, Name: "John Smith"}) {
		t.Error("UCC debtor search should not apply to person subjects")
	}
}

func TestUCCFilings_PortalPointer(t *testing.T) {
	adapter := NewUCCFilings(testClient())
	subject := model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC", State: "DE"}

	records, err := adapter.Fetch(context.Background(), subject, model.SourceConfig{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 pointer record, got %d", len(records))
	}
	if records[0].Attributes["state"] != "DE" || records[0].Attributes["search_url"] == "" {
		t.Errorf("expected DE portal pointer, got %+v", records[0].Attributes)
	}
}

func TestNewsSearch_AdverseTagging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles":[
			{"title":"Acme LLC faces fraud investigation","url":"https://example.com/1","domain":"example.com","seendate":"20260810T120000Z"},
			{"title":"Acme LLC announces expansion","url":"https://example.com/2","domain":"example.com","seendate":"20260801T120000Z"},
			{"title":"Acme LLC opens new office","url":"https://example.com/3","domain":"example.com","seendate":"20260701T120000Z"}
		]}`))
	}))
	defer srv.Close()

	robots := util.NewRobotsChecker("dossier-test", time.Second)
	adapter := NewNewsSearch(testClient(), robots)
	subject := model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC"}

	records, err := adapter.Fetch(context.Background(), subject, model.SourceConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	if records[0].Attributes["sentiment"] != "adverse" {
		t.Errorf("fraud headline should be adverse, got %q", records[0].Attributes["sentiment"])
	}
	if records[0].Attributes["adverse_keywords"] == "" {
		t.Error("adverse headline should list matched keywords")
	}
	if records[1].Attributes["sentiment"] != "positive" {
		t.Errorf("expansion headline should be positive, got %q", records[1].Attributes["sentiment"])
	}
	if records[2].Attributes["sentiment"] != "neutral" {
		t.Errorf("plain headline should be neutral, got %q", records[2].Attributes["sentiment"])
	}
}

func TestNewsSearch_NegativeToneWithoutKeywords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles":[
			{"title":"Acme LLC quarterly results disappoint suppliers","url":"https://example.com/1","domain":"example.com","seendate":"20260810T120000Z","tone":-7.2},
			{"title":"Acme LLC quarterly results","url":"https://example.com/2","domain":"example.com","seendate":"20260801T120000Z","tone":-1.4}
		]}`))
	}))
	defer srv.Close()

	robots := util.NewRobotsChecker("dossier-test", time.Second)
	adapter := NewNewsSearch(testClient(), robots)
	subject := model.Subject{Kind: model.SubjectCompany, Name: "Acme LLC"}

	records, err := adapter.Fetch(context.Background(), subject, model.SourceConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].Attributes["sentiment"] != "adverse" {
		t.Errorf("strongly negative tone should be adverse, got %q", records[0].Attributes["sentiment"])
	}
	if _, tagged := records[0].Attributes["adverse_keywords"]; tagged {
		t.Error("tone-driven adverse mention should carry no keyword tags")
	}
	if records[0].Attributes["tone"] != "-7.2" {
		t.Errorf("tone should be recorded, got %q", records[0].Attributes["tone"])
	}
	if records[1].Attributes["sentiment"] != "neutral" {
		t.Errorf("mildly negative tone should stay neutral, got %q", records[1].Attributes["sentiment"])
	}
}
