package model

import (
	"fmt"
	"strings"
)

// Severity represents the risk level of a compliance finding.
// Values are ordered; JSON uses the upper-case name.
type Severity int

const (
	// SeverityInfo marks informational observations that carry no penalty.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues, e.g. a generic drug name mentioned
	// in editorial content or a missing security header.
	SeverityLow

	// SeverityMedium indicates issues that warrant review, e.g. medical advice
	// language or health data collected with a GET form.
	SeverityMedium

	// SeverityHigh indicates likely violations, e.g. unqualified guarantees
	// or branded medication names in a sales context.
	SeverityHigh

	// SeverityCritical indicates issues that need immediate attention.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity converts a severity name (case-insensitive) to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return SeverityInfo, nil
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Severities returns all severity levels from highest to lowest.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}
