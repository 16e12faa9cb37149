// ABOUTME: Risk assessment, severity tiers, and redline suggestion models
// ABOUTME: Severity is a pure function of score via fixed cut points
package models

import (
	"fmt"
	"strings"
)

// Severity is a discrete risk bucket
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Severities lists tiers from lowest to highest
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity parses a tier name as produced by String, ignoring case
func ParseSeverity(s string) (Severity, error) {
	for _, sev := range Severities {
		if strings.EqualFold(sev.String(), strings.TrimSpace(s)) {
			return sev, nil
		}
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", s)
}

// MarshalText encodes the tier by name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a tier name
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// NeedsRedline reports whether the tier requires a redline suggestion
func (s Severity) NeedsRedline() bool {
	return s >= SeverityHigh
}

// Thresholds are the lower bounds of the Medium, High and Critical tiers
type Thresholds struct {
	Medium   float64 `json:"medium" yaml:"medium"`
	High     float64 `json:"high" yaml:"high"`
	Critical float64 `json:"critical" yaml:"critical"`
}

// DefaultThresholds: Low <0.3, Medium <0.6, High <0.85, Critical >=0.85
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 0.3, High: 0.6, Critical: 0.85}
}

// Tier maps a score to its severity
func (t Thresholds) Tier(score float64) Severity {
	switch {
	case score >= t.Critical:
		return SeverityCritical
	case score >= t.High:
		return SeverityHigh
	case score >= t.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Validate requires 0 < medium < high < critical <= 1
func (t Thresholds) Validate() error {
	if !(t.Medium > 0 && t.Medium < t.High && t.High < t.Critical && t.Critical <= 1) {
		return fmt.Errorf("severity thresholds must satisfy 0 < medium < high < critical <= 1, got %.2f/%.2f/%.2f",
			t.Medium, t.High, t.Critical)
	}
	return nil
}

// Finding is the result of one rule-based heuristic
type Finding struct {
	RuleID       string `json:"rule_id"`
	Severity     int    `json:"severity"` // 0-10
	Rationale    string `json:"rationale"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

// RiskAssessment is the scored result for one clause
type RiskAssessment struct {
	ClauseID    string     `json:"clause_id"`
	Position    int        `json:"position"`
	Category    Category   `json:"category"`
	Score       float64    `json:"score"`
	Severity    Severity   `json:"severity"`
	Matches     []MatchRef `json:"matches"`
	NoPrecedent bool       `json:"no_precedent,omitempty"`
	Findings    []Finding  `json:"findings,omitempty"`
	Rationale   string     `json:"rationale"`
}

// RedlineSource records how a suggestion was produced
type RedlineSource string

const (
	RedlineFromModel     RedlineSource = "model"
	RedlineFromPrecedent RedlineSource = "precedent_fallback"
)

// RedlineSuggestion is a proposed replacement for a high-risk clause
type RedlineSuggestion struct {
	ClauseID           string        `json:"clause_id"`
	Position           int           `json:"position"`
	Text               string        `json:"text"`
	SourcePrecedentIDs []string      `json:"source_precedent_ids"`
	Source             RedlineSource `json:"source"`
}
