// ABOUTME: DocumentReport is the terminal artifact of one pipeline run
// ABOUTME: Holds ordered clause outcomes, assessments, redlines, issues and the summary
package models

import (
	"sort"
	"time"
)

// ClauseOutcome says what happened to a clause during scoring
type ClauseOutcome string

const (
	OutcomeScored  ClauseOutcome = "scored"
	OutcomeSkipped ClauseOutcome = "skipped"
)

// ClauseResult is the per-clause line of a report, present for every clause
type ClauseResult struct {
	ClauseID     string        `json:"clause_id"`
	Position     int           `json:"position"`
	Start        int           `json:"start"`
	End          int           `json:"end"`
	Category     Category      `json:"category"`
	Confidence   float64       `json:"confidence"`
	Outcome      ClauseOutcome `json:"outcome"`
	Unclassified bool          `json:"unclassified,omitempty"`
	SkipReason   string        `json:"skip_reason,omitempty"`
}

// IssueKind classifies an absorbed error
type IssueKind string

const (
	IssueLabelingFallback     IssueKind = "labeling_fallback"
	IssueEmbeddingUnavailable IssueKind = "embedding_unavailable"
	IssuePrecedentIndex       IssueKind = "precedent_index"
	IssueDraftUnavailable     IssueKind = "draft_unavailable"
	IssueDraftInvalid         IssueKind = "draft_invalid"
	IssuePersistence          IssueKind = "persistence"
	IssueTaskPanic            IssueKind = "task_panic"
)

// Issue is an error the pipeline absorbed instead of failing the document
type Issue struct {
	ClauseID string    `json:"clause_id,omitempty"`
	Position int       `json:"position"`
	Stage    string    `json:"stage"`
	Kind     IssueKind `json:"kind"`
	Message  string    `json:"message"`
}

// TierCounts counts assessments per severity tier
type TierCounts struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// Add increments the counter for a tier
func (t *TierCounts) Add(s Severity) {
	switch s {
	case SeverityLow:
		t.Low++
	case SeverityMedium:
		t.Medium++
	case SeverityHigh:
		t.High++
	case SeverityCritical:
		t.Critical++
	}
}

// Total returns the number of counted assessments
func (t TierCounts) Total() int {
	return t.Low + t.Medium + t.High + t.Critical
}

// CategoryBreakdown summarizes labeled clauses per category
type CategoryBreakdown struct {
	Category      Category `json:"category"`
	Count         int      `json:"count"`
	AvgConfidence float64  `json:"avg_confidence"`
}

// ReportSummary is the document-level risk overview
type ReportSummary struct {
	MaxSeverity  *Severity           `json:"max_severity,omitempty"` // nil when nothing was scored
	Tiers        TierCounts          `json:"tiers"`
	Clauses      int                 `json:"clauses"`
	Scored       int                 `json:"scored"`
	Skipped      int                 `json:"skipped"`
	Unclassified int                 `json:"unclassified"`
	Redlines     int                 `json:"redlines"`
	Categories   []CategoryBreakdown `json:"categories"`
	TopRisks     []RiskAssessment    `json:"top_risks"`
}

// DocumentReport is the result of a completed pipeline run
type DocumentReport struct {
	DocumentID  string              `json:"document_id"`
	Filename    string              `json:"filename,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
	Clauses     []ClauseResult      `json:"clauses"`
	Assessments []RiskAssessment    `json:"assessments"`
	Redlines    []RedlineSuggestion `json:"redlines"`
	Issues      []Issue             `json:"issues"`
	Summary     ReportSummary       `json:"summary"`
}

// Summarize builds the summary from clause results and assessments, keeping the top N risks
func Summarize(clauses []ClauseResult, assessments []RiskAssessment, redlines int, topN int) ReportSummary {
	summary := ReportSummary{
		Clauses:    len(clauses),
		Redlines:   redlines,
		Categories: []CategoryBreakdown{},
		TopRisks:   []RiskAssessment{},
	}

	type agg struct {
		count int
		conf  float64
	}
	byCategory := make(map[Category]*agg)
	var order []Category

	for _, c := range clauses {
		switch c.Outcome {
		case OutcomeScored:
			summary.Scored++
		case OutcomeSkipped:
			summary.Skipped++
		}
		if c.Unclassified {
			summary.Unclassified++
		}
		a, ok := byCategory[c.Category]
		if !ok {
			a = &agg{}
			byCategory[c.Category] = a
			order = append(order, c.Category)
		}
		a.count++
		a.conf += c.Confidence
	}

	for _, cat := range order {
		a := byCategory[cat]
		summary.Categories = append(summary.Categories, CategoryBreakdown{
			Category:      cat,
			Count:         a.count,
			AvgConfidence: a.conf / float64(a.count),
		})
	}
	sort.SliceStable(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Count > summary.Categories[j].Count
	})

	for _, a := range assessments {
		summary.Tiers.Add(a.Severity)
		if summary.MaxSeverity == nil || a.Severity > *summary.MaxSeverity {
			sev := a.Severity
			summary.MaxSeverity = &sev
		}
	}

	top := make([]RiskAssessment, len(assessments))
	copy(top, assessments)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Score > top[j].Score
	})
	if topN >= 0 && len(top) > topN {
		top = top[:topN]
	}
	summary.TopRisks = append(summary.TopRisks, top...)

	return summary
}
