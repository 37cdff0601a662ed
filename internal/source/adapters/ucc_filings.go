package adapters

import (
	"context"
	"strings"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/source"
)

// uccPortals lists the state Secretary of State UCC search portals that
// expose a public search page. None expose a stable query API, so this
// adapter produces pointer records for the analyst rather than live lien
// data; a state with a commercial UCC feed can be wired in via BaseURL.
var uccPortals = map[string]string{
	"AZ": "https://ecorp.azcc.gov/PublicSearches/UCCSearch",
	"CA": "https://bizfileonline.sos.ca.gov/search/ucc",
	"CO": "https://www.sos.state.co.us/biz/UCCSearchCriteria.do",
	"DE": "https://icis.corp.delaware.gov/UCCSearch/",
	"FL": "https://www.sunbiz.org/UCC_Search.html",
	"GA": "https://ecorp.sos.ga.gov/UCCSearch",
	"IL": "https://www.ilsos.gov/uccsearch/",
	"NY": "https://appext20.dos.ny.gov/pls/ucc_public/web_search.main_frame",
	"TX": "https://direct.sos.state.tx.us/help/help-ucc.asp",
}

// UCCFilings covers Uniform Commercial Code lien searches. Liens reveal
// secured creditors and obligations invisible on a balance sheet.
type UCCFilings struct {
	client *source.Client
}

func NewUCCFilings(client *source.Client) *UCCFilings {
	return &UCCFilings{client: client}
}

func (u *UCCFilings) ID() model.SourceID { return model.SourceUCCFilings }

// Applicable: debtor search is a company concern; person subjects are
// skipped unless they operate as a sole proprietor, which we cannot know
// up front
func (u *UCCFilings) Applicable(subject model.Subject) bool {
	return subject.Kind == model.SubjectCompany
}

func (u *UCCFilings) Fetch(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	now := time.Now().UTC()
	state := strings.ToUpper(subject.State)

	portal, ok := uccPortals[state]
	if !ok {
		// No state to target; point the analyst at the usual suspects
		return []model.RawRecord{{
			SourceID:  u.ID(),
			Kind:      model.RecordLien,
			FetchedAt: now,
			Name:      subject.Name,
			Attributes: map[string]string{
				"status":         "manual_search_required",
				"recommendation": "search the state of incorporation first (DE, NY, CA, TX, FL cover most filers)",
			},
			Confidence: 0.3,
		}}, nil
	}

	return []model.RawRecord{{
		SourceID:  u.ID(),
		Kind:      model.RecordLien,
		FetchedAt: now,
		Name:      subject.Name,
		Attributes: map[string]string{
			"status":     "manual_search_required",
			"state":      state,
			"search_url": portal,
			"guidance":   "check active UCC-1 filings, UCC-3 continuations, secured party names, and collateral descriptions",
		},
		Confidence: 0.3,
	}}, nil
}
