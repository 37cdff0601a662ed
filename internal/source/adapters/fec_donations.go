package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/source"
)

const fecURL = "https://api.open.fec.gov/v1"

// FECDonations queries Federal Election Commission contribution data.
// Company subjects are searched by contributor employer, person subjects by
// contributor name. A per-run aggregate record carries the total so the
// political-exposure rule can fire on it.
type FECDonations struct {
	client *source.Client
}

func NewFECDonations(client *source.Client) *FECDonations {
	return &FECDonations{client: client}
}

func (f *FECDonations) ID() model.SourceID { return model.SourceFECDonations }

func (f *FECDonations) Applicable(model.Subject) bool { return true }

type fecResponse struct {
	Results []struct {
		ContributorName     string  `json:"contributor_name"`
		ContributorEmployer string  `json:"contributor_employer"`
		ContributorState    string  `json:"contributor_state"`
		Amount              float64 `json:"contribution_receipt_amount"`
		Date                string  `json:"contribution_receipt_date"`
		Committee           struct {
			Name string `json:"name"`
		} `json:"committee"`
	} `json:"results"`
}

func (f *FECDonations) Fetch(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error) {
	params := url.Values{}
	params.Set("per_page", "100")
	params.Set("sort", "-contribution_receipt_date")
	if cfg.APIKey != "" {
		params.Set("api_key", cfg.APIKey)
	}

	if subject.Kind == model.SubjectPerson {
		params.Set("contributor_name", subject.Name)
		if subject.State != "" {
			params.Set("contributor_state", subject.State)
		}
	} else {
		params.Set("contributor_employer", subject.Name)
	}

	base := fecURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}

	var resp fecResponse
	err := f.client.GetJSON(ctx, f.ID(), base+"/schedules/schedule_a/", params, nil, &resp)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	var records []model.RawRecord
	var total float64

	for _, r := range firstN(resp.Results, 100) {
		total += r.Amount
		records = append(records, model.RawRecord{
			SourceID:  f.ID(),
			Kind:      model.RecordContribution,
			FetchedAt: now,
			Name:      subject.Name,
			Attributes: map[string]string{
				"contributor": r.ContributorName,
				"employer":    r.ContributorEmployer,
				"state":       r.ContributorState,
				"committee":   r.Committee.Name,
				"amount":      fmt.Sprintf("%.2f", r.Amount),
				"date":        r.Date,
			},
			Confidence: 0.8, // FEC matches on free-text name/employer fields
		})
	}

	// Aggregate record for threshold rules
	records = append(records, model.RawRecord{
		SourceID:  f.ID(),
		Kind:      model.RecordContribution,
		FetchedAt: now,
		Name:      subject.Name,
		Attributes: map[string]string{
			"aggregate":    "true",
			"total_amount": fmt.Sprintf("%.2f", total),
			"count":        fmt.Sprintf("%d", len(resp.Results)),
		},
		Confidence: 0.8,
	})

	return records, nil
}
