package model

import "time"

// RelationType classifies a directed edge between two canonical entities
type RelationType string

const (
	RelationOfficerOf RelationType = "officer-of"
	RelationOwnerOf   RelationType = "owner-of"
	RelationRelatedTo RelationType = "related-to"
)

// Attribute is a best-known value for one field with provenance. Values that
// lost the precedence contest are kept in Superseded rather than discarded.
type Attribute struct {
	Value      string     `json:"value"`
	Source     SourceID   `json:"source"`
	Confidence float64    `json:"confidence"`
	FetchedAt  time.Time  `json:"fetched_at"`
	Superseded []Revision `json:"superseded,omitempty"`
}

// Revision is a losing attribute value retained for provenance
type Revision struct {
	Value      string    `json:"value"`
	Source     SourceID  `json:"source"`
	Confidence float64   `json:"confidence"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Relationship is a deduplicated typed edge from one canonical entity to
// another. Sources lists every provider that asserted the edge.
type Relationship struct {
	Type     RelationType `json:"type"`
	TargetID string       `json:"target_id"`
	Sources  []SourceID   `json:"sources,omitempty"`
}

// CanonicalEntity is a resolved organization or person, merged from one or
// more raw records. The ID is stable within a run but not persisted across
// runs.
type CanonicalEntity struct {
	ID            string               `json:"entity_id"`
	Kind          SubjectKind          `json:"kind"`
	Names         []string             `json:"names"`       // All known aliases, sorted
	Identifiers   map[string]string    `json:"identifiers"` // Identifier type -> value
	Attributes    map[string]Attribute `json:"attributes,omitempty"`
	Relationships []Relationship       `json:"relationships,omitempty"`
	Records       []RecordRef          `json:"records"` // Contributing raw records; never empty
}

// HasIdentifier reports whether the entity carries the given identifier value
func (e *CanonicalEntity) HasIdentifier(identType, value string) bool {
	return e.Identifiers[identType] == value
}
