package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/source"
)

const openCorporatesURL = "https://api.opencorporates.com/v0.4"

// usJurisdictions maps two-letter state codes to OpenCorporates
// jurisdiction codes
var usJurisdictions = func() map[string]string {
	m := make(map[string]string, 51)
	for _, code := range []string{
		"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
		"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
		"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
		"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
		"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY", "DC",
	} {
		m[code] = "us_" + strings.ToLower(code)
	}
	return m
}()

// OpenCorporates queries the global corporate registry aggregator. Works
// without a key on a very tight quota; an api_token raises it.
type OpenCorporates struct {
	client *source.Client
}

func NewOpenCorporates(client *source.Client) *OpenCorporates {
	return &OpenCorporates{client: client}
}

func (o *OpenCorporates) ID() model.SourceID { return model.SourceOpenCorporates }

func (o *OpenCorporates) Applicable(model.Subject) bool { return true }

type ocCompany struct {
	Name              string `json:"name"`
	CompanyNumber     string `json:"company_number"`
	JurisdictionCode  string `json:"jurisdiction_code"`
	CurrentStatus     string `json:"current_status"`
	IncorporationDate string `json:"incorporation_date"`
	DissolutionDate   string `json:"dissolution_date"`
	CompanyType       string `json:"company_type"`
	RegisteredAddress string `json:"registered_address_in_full"`
	AgentName         string `json:"agent_name"`
	Inactive          bool   `json:"inactive"`
	Officers          []struct {
		Officer struct {
			Name     string `json:"name"`
			Position string `json:"position"`
		} `json:"officer"`
	} `json:"officers"`
}

type ocSearchResponse struct {
	Results struct {
		Companies []struct {
			Company ocCompany `json:"company"`
		} `json:"companies"`
	} `json:"results"`
}

type ocOfficerResponse struct {
	Results struct {
		Officers []struct {
			Officer struct {
				Name     string    `json:"name"`
				Position string    `json:"position"`
				Company  ocCompany `json:"company"`
			} `json:"officer"`
		} `json:"officers"`
	} `json:"results"`
}

func (o *OpenCorporates) Fetch(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error) {
	if subject.Kind == model.SubjectPerson {
		return o.searchOfficer(ctx, subject, cfg)
	}
	return o.searchCompany(ctx, subject, cfg)
}

func (o *OpenCorporates) searchCompany(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error) {
	params := url.Values{}
	params.Set("q", subject.Name)
	params.Set("per_page", "10")
	params.Set("order", "score")
	if code, ok := usJurisdictions[strings.ToUpper(subject.State)]; ok {
		params.Set("jurisdiction_code", code)
	}
	if cfg.APIKey != "" {
		params.Set("api_token", cfg.APIKey)
	}

	var resp ocSearchResponse
	err := o.client.GetJSON(ctx, o.ID(), baseURL(cfg)+"/companies/search", params, nil, &resp)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now().UTC()
	var records []model.RawRecord
	for _, wrapper := range firstN(resp.Results.Companies, 10) {
		records = append(records, o.companyRecord(wrapper.Company, now))
	}
	return records, nil
}

func (o *OpenCorporates) searchOfficer(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error) {
	params := url.Values{}
	params.Set("q", subject.Name)
	params.Set("per_page", "30")
	params.Set("order", "score")
	if cfg.APIKey != "" {
		params.Set("api_token", cfg.APIKey)
	}

	var resp ocOfficerResponse
	err := o.client.GetJSON(ctx, o.ID(), baseURL(cfg)+"/officers/search", params, nil, &resp)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now().UTC()
	var records []model.RawRecord
	for _, wrapper := range firstN(resp.Results.Officers, 30) {
		officer := wrapper.Officer
		rec := model.RawRecord{
			SourceID:  o.ID(),
			Kind:      model.RecordOfficer,
			FetchedAt: now,
			Name:      officer.Name,
			Attributes: map[string]string{
				"position": officer.Position,
			},
			Confidence: 0.7, // Officer search matches on name only
		}
		if officer.Company.Name != "" {
			rec.Relations = []model.RawRelation{{
				Type:        model.RelationOfficerOf,
				Name:        officer.Company.Name,
				Identifiers: registryIdent(officer.Company),
			}}
		}
		records = append(records, rec)
	}
	return records, nil
}

// companyRecord converts one registry match, attaching officers as
// officer-of edges pointing at the company
func (o *OpenCorporates) companyRecord(c ocCompany, now time.Time) model.RawRecord {
	rec := model.RawRecord{
		SourceID:    o.ID(),
		Kind:        model.RecordRegistration,
		FetchedAt:   now,
		Name:        c.Name,
		Identifiers: registryIdent(c),
		Attributes: map[string]string{
			"jurisdiction":       c.JurisdictionCode,
			"status":             c.CurrentStatus,
			"incorporation_date": c.IncorporationDate,
			"company_type":       c.CompanyType,
			"registered_address": c.RegisteredAddress,
		},
		Confidence: 0.85,
	}
	if c.DissolutionDate != "" {
		rec.Attributes["dissolution_date"] = c.DissolutionDate
	}
	if c.Inactive {
		rec.Attributes["status"] = "inactive"
	}
	if c.AgentName != "" {
		rec.Attributes["agent_name"] = c.AgentName
	}
	for _, ow := range c.Officers {
		if ow.Officer.Name == "" {
			continue
		}
		rec.Relations = append(rec.Relations, model.RawRelation{
			Type:    model.RelationOfficerOf,
			Name:    ow.Officer.Name,
			Reverse: true,
		})
	}
	return rec
}

// registryIdent builds the jurisdiction-scoped registry identifier
func registryIdent(c ocCompany) map[string]string {
	if c.CompanyNumber == "" {
		return nil
	}
	value := c.CompanyNumber
	if c.JurisdictionCode != "" {
		value = fmt.Sprintf("%s/%s", c.JurisdictionCode, c.CompanyNumber)
	}
	return map[string]string{model.IdentRegistry: value}
}

func baseURL(cfg model.SourceConfig) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return openCorporatesURL
}
