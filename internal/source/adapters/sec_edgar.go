package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/source"
)

const (
	edgarTickersURL     = "https://www.sec.gov/files/company_tickers.json"
	edgarSubmissionsURL = "https://data.sec.gov/submissions"

	edgarMaxFilings = 25
)

// SECEdgar queries the free SEC EDGAR APIs. The SEC asks clients to
// identify themselves and to stay under 10 requests per second; the rate is
// enforced by the shared limiter, the identification by the User-Agent.
type SECEdgar struct {
	client *source.Client
}

func NewSECEdgar(client *source.Client) *SECEdgar {
	return &SECEdgar{client: client}
}

func (s *SECEdgar) ID() model.SourceID { return model.SourceSECEdgar }

// Applicable: companies always; persons only with a known company
// affiliation to anchor the filing search
func (s *SECEdgar) Applicable(subject model.Subject) bool {
	return subject.Kind == model.SubjectCompany || subject.Company != ""
}

type tickerEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

type submissions struct {
	Name        string `json:"name"`
	SIC         string `json:"sic"`
	SICDesc     string `json:"sicDescription"`
	StateOfInc  string `json:"stateOfIncorporation"`
	Tickers     []string `json:"tickers"`
	FormerNames []struct {
		Name string `json:"name"`
	} `json:"formerNames"`
	Filings struct {
		Recent struct {
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			AccessionNumber []string `json:"accessionNumber"`
		} `json:"recent"`
	} `json:"filings"`
}

func (s *SECEdgar) Fetch(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error) {
	name := subject.Name
	if subject.Kind == model.SubjectPerson {
		name = subject.Company
	}

	cik, err := s.findCIK(ctx, name, cfg)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, nil // Not an EDGAR registrant
		}
		return nil, err
	}
	if cik == 0 {
		return nil, nil
	}

	var subs submissions
	base := edgarSubmissionsURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL + "/submissions"
	}
	url := fmt.Sprintf("%s/CIK%010d.json", base, cik)
	if err := s.client.GetJSON(ctx, s.ID(), url, nil, nil, &subs); err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now().UTC()
	cikStr := fmt.Sprintf("%d", cik)

	reg := model.RawRecord{
		SourceID:    s.ID(),
		Kind:        model.RecordRegistration,
		FetchedAt:   now,
		Name:        subs.Name,
		Identifiers: map[string]string{model.IdentCIK: cikStr},
		Attributes: map[string]string{
			"sic":                    subs.SIC,
			"sic_description":        subs.SICDesc,
			"state_of_incorporation": subs.StateOfInc,
		},
		Confidence: 0.95, // Registry data straight from the regulator
	}
	if len(subs.Tickers) > 0 {
		reg.Identifiers[model.IdentTicker] = subs.Tickers[0]
	}

	records := []model.RawRecord{reg}

	// Former names become alias records carrying the same CIK so the
	// resolver folds them into one entity
	for _, former := range subs.FormerNames {
		if former.Name == "" {
			continue
		}
		records = append(records, model.RawRecord{
			SourceID:    s.ID(),
			Kind:        model.RecordRegistration,
			FetchedAt:   now,
			Name:        former.Name,
			Identifiers: map[string]string{model.IdentCIK: cikStr},
			Attributes:  map[string]string{"former_name": "true"},
			Confidence:  0.9,
		})
	}

	recent := subs.Filings.Recent
	for i := 0; i < len(recent.Form) && i < edgarMaxFilings; i++ {
		attrs := map[string]string{
			"form":       recent.Form[i],
			"filed_date": at(recent.FilingDate, i),
			"accession":  at(recent.AccessionNumber, i),
		}
		records = append(records, model.RawRecord{
			SourceID:    s.ID(),
			Kind:        model.RecordFiling,
			FetchedAt:   now,
			Name:        subs.Name,
			Identifiers: map[string]string{model.IdentCIK: cikStr},
			Attributes:  attrs,
			Confidence:  0.95,
		})
	}

	return records, nil
}

// findCIK resolves a company name to its Central Index Key via the public
// ticker file. Exact (case-insensitive) title match wins; otherwise the
// first title containing the query.
func (s *SECEdgar) findCIK(ctx context.Context, name string, cfg model.SourceConfig) (int, error) {
	url := edgarTickersURL
	if cfg.BaseURL != "" {
		url = cfg.BaseURL + "/files/company_tickers.json"
	}

	var tickers map[string]tickerEntry
	if err := s.client.GetJSON(ctx, s.ID(), url, nil, nil, &tickers); err != nil {
		return 0, err
	}

	needle := strings.ToUpper(strings.TrimSpace(name))
	best := 0
	for _, entry := range tickers {
		title := strings.ToUpper(entry.Title)
		if title == needle {
			return entry.CIK, nil
		}
		if best == 0 && strings.Contains(title, needle) {
			best = entry.CIK
		}
	}
	return best, nil
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
