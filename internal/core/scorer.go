// ABOUTME: Risk scorer combining ranked precedent matches, category weight and heuristics
// ABOUTME: Scores and rationales are pure functions of their inputs
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/harper/redliner/internal/models"
)

// RiskScorer turns precedent matches into a RiskAssessment
type RiskScorer struct {
	cfg Config
}

// NewRiskScorer creates a scorer with the given policy
func NewRiskScorer(cfg Config) *RiskScorer {
	return &RiskScorer{cfg: cfg}
}

// RankWeight returns the weight for the match at rank (0-based) out of n matches
func (s *RiskScorer) RankWeight(rank, n int) float64 {
	switch rank {
	case 0:
		return s.cfg.RankWeights.First
	case 1:
		return s.cfg.RankWeights.Second
	default:
		rest := 1 - s.cfg.RankWeights.First - s.cfg.RankWeights.Second
		if rest <= 0 || n <= 2 {
			return 0
		}
		return rest / float64(n-2)
	}
}

// WeightedRisk is the rank-weighted mean of similarity times baseline risk, before category weight
func (s *RiskScorer) WeightedRisk(matches []models.Match) float64 {
	var num, den float64
	for i, m := range matches {
		w := s.RankWeight(i, len(matches))
		num += w * (m.Similarity * m.Precedent.BaselineRisk)
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Score assesses a clause from its matches, which must be ordered best first
func (s *RiskScorer) Score(clause *models.Clause, matches []models.Match) models.RiskAssessment {
	a := models.RiskAssessment{
		ClauseID: clause.ID,
		Position: clause.Position,
		Category: clause.Category,
		Matches:  make([]models.MatchRef, 0, len(matches)),
	}
	for _, m := range matches {
		a.Matches = append(a.Matches, m.Ref())
	}

	var rationale strings.Builder
	if len(matches) == 0 {
		a.Score = s.cfg.UnknownRisk
		a.NoPrecedent = true
		fmt.Fprintf(&rationale, "No comparable precedent found; assigned unknown-clause risk %.2f.", s.cfg.UnknownRisk)
	} else {
		a.Score = clamp01(s.WeightedRisk(matches) * s.cfg.CategoryWeight(clause.Category))
		top := matches[0]
		fmt.Fprintf(&rationale, "Closest precedent %s (%s) at similarity %.2f with baseline risk %.2f; weighted risk %.2f over %d match(es).",
			top.Precedent.ID, top.Precedent.Category, top.Similarity, top.Precedent.BaselineRisk, a.Score, len(matches))
	}

	if clause.IsClassified() {
		a.Findings = Heuristics(clause.Category, clause.Text())
	}
	for _, f := range a.Findings {
		fmt.Fprintf(&rationale, " Heuristic %s (severity %d/10): %s", f.RuleID, f.Severity, f.Rationale)
	}
	if s.cfg.HeuristicFloor {
		if floor := float64(MaxFindingSeverity(a.Findings)) / 10; floor > a.Score {
			a.Score = clamp01(floor)
			fmt.Fprintf(&rationale, " Score raised to heuristic floor %.2f.", a.Score)
		}
	}

	a.Severity = s.cfg.Thresholds.Tier(a.Score)
	a.Rationale = rationale.String()
	return a
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
