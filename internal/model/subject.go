package model

import (
	"fmt"
	"strings"
)

// SubjectKind distinguishes organization and person research targets
type SubjectKind string

const (
	SubjectCompany SubjectKind = "company" // Corporations, LLCs, partnerships
	SubjectPerson  SubjectKind = "person"  // Individuals
)

// Subject is the research target. It is immutable once a run starts.
type Subject struct {
	Kind    SubjectKind `json:"kind"`              // company or person
	Name    string      `json:"name"`              // Legal or common name
	State   string      `json:"state,omitempty"`   // Two-letter state code (incorporation or residence)
	Company string      `json:"company,omitempty"` // Known company affiliation (person subjects only)
}

// Validate checks that the subject can start a research run
func (s Subject) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ConfigurationError{Field: "subject.name", Reason: "name is required"}
	}

	switch s.Kind {
	case SubjectCompany, SubjectPerson:
	default:
		return &ConfigurationError{Field: "subject.kind", Reason: fmt.Sprintf("unknown subject kind %q", s.Kind)}
	}

	if s.State != "" && len(s.State) != 2 {
		return &ConfigurationError{Field: "subject.state", Reason: "state must be a two-letter code"}
	}

	if s.Kind == SubjectCompany && s.Company != "" {
		return &ConfigurationError{Field: "subject.company", Reason: "company affiliation only applies to person subjects"}
	}

	return nil
}

// ConfigurationError indicates a configuration or subject problem that
// prevents any fetch from starting. It is the only fatal error class.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}
