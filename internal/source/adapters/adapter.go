// Package adapters holds one fetcher per data provider. Protocol details
// (endpoints, query shapes, auth) live here and nowhere else; the pipeline
// only sees raw records and typed failures.
package adapters

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/blackwidowglobal/dossier/internal/source"
	"github.com/blackwidowglobal/dossier/internal/util"
)

// All builds every built-in adapter against the shared client. The returned
// order is not significant; the orchestrator keys results by source ID.
func All(client *source.Client, robots *util.RobotsChecker) []source.Fetcher {
	return []source.Fetcher{
		NewSECEdgar(client),
		NewOpenCorporates(client),
		NewFECDonations(client),
		NewCourtRecords(client),
		NewUCCFilings(client),
		NewNewsSearch(client, robots),
	}
}

// stripHTML flattens markup fragments that some providers embed in text
// fields (CourtListener highlights matches with <mark>, GDELT titles
// occasionally carry entities).
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	var buf strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			buf.WriteString(tokenizer.Token().Data)
		}
	}
	return strings.TrimSpace(buf.String())
}

// firstN bounds provider result lists so one chatty source cannot dominate
// the dossier
func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
