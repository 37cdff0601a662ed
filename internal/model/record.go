package model

import (
	"fmt"
	"time"
)

// SourceID identifies one data provider
type SourceID string

const (
	SourceSECEdgar       SourceID = "sec_edgar"      // SEC EDGAR filings and registrants
	SourceOpenCorporates SourceID = "opencorporates" // Global corporate registries
	SourceFECDonations   SourceID = "fec_donations"  // Federal campaign contributions
	SourceCourtRecords   SourceID = "court_records"  // Federal and state litigation
	SourceUCCFilings     SourceID = "ucc_filings"    // UCC lien filings
	SourceNewsSearch     SourceID = "news_search"    // News and adverse media
)

// AllSources returns every known source ID in stable (sorted) order
func AllSources() []SourceID {
	return []SourceID{
		SourceCourtRecords,
		SourceFECDonations,
		SourceNewsSearch,
		SourceOpenCorporates,
		SourceSECEdgar,
		SourceUCCFilings,
	}
}

// RecordKind classifies what a raw record describes
type RecordKind string

const (
	RecordRegistration RecordKind = "registration" // Corporate registry entry
	RecordFiling       RecordKind = "filing"       // Securities filing
	RecordOfficer      RecordKind = "officer"      // Officer or director listing
	RecordContribution RecordKind = "contribution" // Political contribution
	RecordCourtCase    RecordKind = "court_case"   // Litigation record
	RecordLien         RecordKind = "lien"         // UCC lien filing
	RecordNewsMention  RecordKind = "news_mention" // News article mention
)

// Identifier types carried in RawRecord.Identifiers and CanonicalEntity.Identifiers.
// Strong identifiers force a merge regardless of name spelling.
const (
	IdentCIK      = "cik"             // SEC Central Index Key
	IdentRegistry = "registry_number" // Corporate registry number (jurisdiction-scoped)
	IdentTicker   = "ticker"          // Exchange ticker
	IdentDocket   = "docket"          // Court docket number
)

// RawRecord is one source's unprocessed finding about an entity. It is
// created by a fetcher, owned by the orchestrator, and never mutated after
// creation.
type RawRecord struct {
	SourceID    SourceID          `json:"source_id"`
	Kind        RecordKind        `json:"kind"`
	FetchedAt   time.Time         `json:"fetched_at"`
	Name        string            `json:"name,omitempty"`        // Entity name as the source reports it
	Identifiers map[string]string `json:"identifiers,omitempty"` // Identifier type -> value
	Attributes  map[string]string `json:"attributes,omitempty"`  // Field -> source-asserted value
	Relations   []RawRelation     `json:"relations,omitempty"`   // Links to other entities
	Confidence  float64           `json:"confidence"`            // Source-asserted, 0..1
}

// RawRelation is a link to another entity as reported by a single source,
// before resolution assigns entity IDs. The edge runs from the record's
// entity to the named target; Reverse flips it (a company record listing an
// officer yields officer -> officer-of -> company).
type RawRelation struct {
	Type        RelationType      `json:"type"`
	Name        string            `json:"name"` // Other entity's name
	Identifiers map[string]string `json:"identifiers,omitempty"`
	Reverse     bool              `json:"reverse,omitempty"`
}

// RecordRef is lightweight provenance pointing back at a contributing record
type RecordRef struct {
	Source    SourceID   `json:"source"`
	Kind      RecordKind `json:"kind"`
	FetchedAt time.Time  `json:"fetched_at"`
	Detail    string     `json:"detail,omitempty"` // Short human-readable pointer (docket, headline...)
}

// FailureReason classifies why a source produced no records
type FailureReason string

const (
	ReasonTimeout      FailureReason = "timeout"
	ReasonCancelled    FailureReason = "cancelled"
	ReasonRateLimited  FailureReason = "rate_limited"
	ReasonUnauthorized FailureReason = "unauthorized"
	ReasonNetwork      FailureReason = "network"
	ReasonMalformed    FailureReason = "malformed"
	ReasonCircuitOpen  FailureReason = "circuit_open"
	ReasonSkipped      FailureReason = "skipped"
)

// SourceFailure is a per-source failure. It is always scoped to one source
// and never aborts the run; the orchestrator records it in coverage.
type SourceFailure struct {
	SourceID  SourceID      `json:"source_id"`
	Reason    FailureReason `json:"reason"`
	Detail    string        `json:"detail,omitempty"`
	Retryable bool          `json:"retryable"`
}

func (f *SourceFailure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("%s: %s", f.SourceID, f.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", f.SourceID, f.Reason, f.Detail)
}
