package adapters

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/source"
)

const courtListenerURL = "https://www.courtlistener.com/api/rest/v3"

// CourtRecords searches CourtListener: the opinion index plus the RECAP
// archive of PACER dockets. Full PACER needs a paid account; these two free
// surfaces cover most federal litigation visibility.
type CourtRecords struct {
	client *source.Client
}

func NewCourtRecords(client *source.Client) *CourtRecords {
	return &CourtRecords{client: client}
}

func (c *CourtRecords) ID() model.SourceID { return model.SourceCourtRecords }

func (c *CourtRecords) Applicable(model.Subject) bool { return true }

type clResponse struct {
	Results []struct {
		CaseName     string `json:"caseName"`
		DocketNumber string `json:"docketNumber"`
		Court        string `json:"court"`
		DateFiled    string `json:"dateFiled"`
		NatureOfSuit string `json:"nature_of_suit"`
		Snippet      string `json:"snippet"`
		AbsoluteURL  string `json:"absolute_url"`
	} `json:"results"`
}

func (c *CourtRecords) Fetch(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error) {
	base := courtListenerURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}

	var records []model.RawRecord

	// type=o is the opinion index, type=r the RECAP docket archive
	for _, searchType := range []string{"o", "r"} {
		params := url.Values{}
		params.Set("q", `"`+subject.Name+`"`)
		params.Set("order_by", "dateFiled desc")
		params.Set("type", searchType)

		var headers map[string]string
		if cfg.APIKey != "" {
			headers = map[string]string{"Authorization": "Token " + cfg.APIKey}
		}

		var resp clResponse
		err := c.client.GetJSON(ctx, c.ID(), base+"/search/", params, headers, &resp)
		if err != nil {
			if errors.Is(err, source.ErrNotFound) {
				continue
			}
			return nil, err
		}

		now := time.Now().UTC()
		for _, result := range firstN(resp.Results, 20) {
			caseName := stripHTML(result.CaseName)
			rec := model.RawRecord{
				SourceID:  c.ID(),
				Kind:      model.RecordCourtCase,
				FetchedAt: now,
				Name:      subject.Name,
				Attributes: map[string]string{
					"case_name":  caseName,
					"court":      result.Court,
					"date_filed": result.DateFiled,
					"case_type":  caseType(result.Court, result.NatureOfSuit),
					"party_role": partyRole(caseName, subject.Name),
					"snippet":    stripHTML(result.Snippet),
				},
				Confidence: 0.75, // Full-text match, party not verified
			}
			if result.DocketNumber != "" {
				rec.Identifiers = map[string]string{model.IdentDocket: result.DocketNumber}
			}
			if result.NatureOfSuit != "" {
				rec.Attributes["nature_of_suit"] = result.NatureOfSuit
			}
			records = append(records, rec)
		}
	}

	return records, nil
}

// caseType classifies a docket as civil, criminal, or bankruptcy from the
// court ID and nature-of-suit text
func caseType(court, natureOfSuit string) string {
	nos := strings.ToLower(natureOfSuit)
	switch {
	case strings.Contains(nos, "criminal") || strings.HasSuffix(court, "cr"):
		return "criminal"
	case strings.Contains(nos, "bankruptcy") || strings.Contains(strings.ToLower(court), "bk"):
		return "bankruptcy"
	default:
		return "civil"
	}
}

// partyRole guesses which side of "Plaintiff v. Defendant" the subject is
// on. Unknown when the caption does not follow that shape.
func partyRole(caseName, subjectName string) string {
	lower := strings.ToLower(caseName)
	needle := strings.ToLower(subjectName)

	idx := strings.Index(lower, " v. ")
	if idx < 0 {
		idx = strings.Index(lower, " v ")
	}
	if idx < 0 || !strings.Contains(lower, needle) {
		return "unknown"
	}

	if strings.Index(lower, needle) > idx {
		return "defendant"
	}
	return "plaintiff"
}
