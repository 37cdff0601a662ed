package model

// Severity is an ordered risk scale
type Severity int

const (
	SeverityLow      Severity = 1
	SeverityMedium   Severity = 2
	SeverityHigh     Severity = 3
	SeverityCritical Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText renders severities as their names in JSON and YAML output
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts severity names
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "low":
		*s = SeverityLow
	case "medium":
		*s = SeverityMedium
	case "high":
		*s = SeverityHigh
	case "critical":
		*s = SeverityCritical
	default:
		*s = 0
	}
	return nil
}

// Escalate returns the next severity level, capped at critical
func (s Severity) Escalate() Severity {
	if s >= SeverityCritical {
		return SeverityCritical
	}
	return s + 1
}

// Category groups findings by risk area
type Category string

const (
	CategoryLitigation   Category = "litigation"
	CategoryRegulatory   Category = "regulatory"
	CategoryPolitical    Category = "political"
	CategoryAdverseMedia Category = "adverse-media"
	CategoryOwnership    Category = "ownership"
	CategoryLiens        Category = "liens"
)

// Finding is one risk-relevant observation produced by a rule
type Finding struct {
	Category    Category    `json:"category"`
	Severity    Severity    `json:"severity"`
	Rule        string      `json:"rule"` // Name of the rule that fired
	Description string      `json:"description"`
	EntityID    string      `json:"entity_id"`
	Evidence    []RecordRef `json:"evidence,omitempty"`
	Confidence  float64     `json:"confidence"`
}
