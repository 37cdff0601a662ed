package adapters

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/source"
	"github.com/blackwidowglobal/dossier/internal/util"
)

const (
	gdeltURL      = "https://api.gdeltproject.org/api/v2/doc/doc"
	googleNewsURL = "https://news.google.com/rss/search"

	newsDaysBack    = 365
	newsMaxArticles = 50

	// GDELT document tone runs roughly -20..20; at or below this the
	// coverage is adverse even when no screening keyword appears
	adverseToneThreshold = -5.0
)

// adverseKeywords drive the adverse-media screen; a headline containing any
// of them is tagged for the risk scorer
var adverseKeywords = []string{
	"fraud", "embezzlement", "indicted", "arrested", "convicted",
	"lawsuit", "scandal", "investigation", "bribery", "corruption",
	"money laundering", "sanctions", "bankruptcy", "default",
	"violation", "penalty", "fine", "whistleblower", "misconduct",
	"insider trading", "securities fraud", "tax evasion",
	"criminal", "felony", "allegations",
}

var positiveKeywords = []string{
	"award", "recognition", "growth", "expansion", "partnership",
	"innovation", "philanthropy", "acquisition", "funding", "ipo",
}

// NewsSearch screens global news coverage. GDELT is the primary (free,
// JSON); the Google News RSS feed is the fallback and goes through the
// robots.txt checker since it is a scrape, not an API.
type NewsSearch struct {
	client *source.Client
	robots *util.RobotsChecker
}

func NewNewsSearch(client *source.Client, robots *util.RobotsChecker) *NewsSearch {
	return &NewsSearch{client: client, robots: robots}
}

func (n *NewsSearch) ID() model.SourceID { return model.SourceNewsSearch }

func (n *NewsSearch) Applicable(model.Subject) bool { return true }

type gdeltResponse struct {
	Articles []struct {
		Title    string  `json:"title"`
		URL      string  `json:"url"`
		Domain   string  `json:"domain"`
		SeenDate string  `json:"seendate"`
		Tone     float64 `json:"tone"`
	} `json:"articles"`
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			Link    string `xml:"link"`
			PubDate string `xml:"pubDate"`
			Source  string `xml:"source"`
		} `xml:"item"`
	} `xml:"channel"`
}

func (n *NewsSearch) Fetch(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error) {
	records, err := n.searchGDELT(ctx, subject, cfg)
	if err == nil && len(records) > 0 {
		return records, nil
	}
	if err != nil {
		var failure *model.SourceFailure
		if errors.As(err, &failure) && !failure.Retryable {
			return nil, err
		}
	}

	// GDELT empty or transiently down; try the RSS fallback
	return n.searchRSS(ctx, subject, cfg)
}

func (n *NewsSearch) searchGDELT(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error) {
	base := gdeltURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}

	params := url.Values{}
	params.Set("query", `"`+subject.Name+`"`)
	params.Set("mode", "artlist")
	params.Set("maxrecords", fmt.Sprintf("%d", newsMaxArticles))
	params.Set("format", "json")
	params.Set("sort", "datedesc")
	params.Set("timespan", fmt.Sprintf("%dd", newsDaysBack))

	var resp gdeltResponse
	if err := n.client.GetJSON(ctx, n.ID(), base, params, nil, &resp); err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now().UTC()
	var records []model.RawRecord
	for _, article := range firstN(resp.Articles, newsMaxArticles) {
		records = append(records, n.articleRecord(subject, stripHTML(article.Title), article.URL, article.Domain, article.SeenDate, article.Tone, now))
	}
	return records, nil
}

func (n *NewsSearch) searchRSS(ctx context.Context, subject model.Subject, cfg model.SourceConfig) ([]model.RawRecord, error) {
	feedURL := googleNewsURL
	if cfg.BaseURL != "" {
		feedURL = cfg.BaseURL + "/rss/search"
	}

	if allowed, delay, _ := n.robots.CanFetch(ctx, feedURL); !allowed {
		return nil, &model.SourceFailure{SourceID: n.ID(), Reason: model.ReasonSkipped, Detail: "robots.txt disallows feed", Retryable: false}
	} else if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	params := url.Values{}
	params.Set("q", `"`+subject.Name+`"`)

	body, err := n.client.Get(ctx, n.ID(), feedURL, params, nil)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, &model.SourceFailure{SourceID: n.ID(), Reason: model.ReasonMalformed, Detail: fmt.Sprintf("decode feed: %v", err), Retryable: false}
	}

	now := time.Now().UTC()
	var records []model.RawRecord
	for _, item := range firstN(feed.Channel.Items, newsMaxArticles) {
		// RSS items carry no tone score
		records = append(records, n.articleRecord(subject, stripHTML(item.Title), item.Link, item.Source, item.PubDate, 0, now))
	}
	return records, nil
}

// articleRecord tags the headline against the keyword screens, falling
// back to the tone score for articles whose headline trips no keyword.
// News mentions carry low confidence: they name-match only and must not
// force an entity merge on their own.
func (n *NewsSearch) articleRecord(subject model.Subject, title, link, domain, date string, tone float64, now time.Time) model.RawRecord {
	attrs := map[string]string{
		"headline": title,
		"url":      link,
		"domain":   domain,
		"date":     date,
	}
	if tone != 0 {
		attrs["tone"] = strconv.FormatFloat(tone, 'f', 1, 64)
	}

	lower := strings.ToLower(title)
	var adverse []string
	for _, kw := range adverseKeywords {
		if strings.Contains(lower, kw) {
			adverse = append(adverse, kw)
		}
	}
	switch {
	case len(adverse) > 0:
		attrs["adverse_keywords"] = strings.Join(adverse, ",")
		attrs["sentiment"] = "adverse"
	case tone != 0 && tone <= adverseToneThreshold:
		attrs["sentiment"] = "adverse"
	default:
		for _, kw := range positiveKeywords {
			if strings.Contains(lower, kw) {
				attrs["sentiment"] = "positive"
				break
			}
		}
	}
	if attrs["sentiment"] == "" {
		attrs["sentiment"] = "neutral"
	}

	return model.RawRecord{
		SourceID:   n.ID(),
		Kind:       model.RecordNewsMention,
		FetchedAt:  now,
		Name:       subject.Name,
		Attributes: attrs,
		Confidence: 0.5,
	}
}
