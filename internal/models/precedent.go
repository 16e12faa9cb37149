// ABOUTME: Precedent corpus entries and nearest-neighbor match results
// ABOUTME: Precedents are curated reference clauses with a baseline risk weight
package models

import (
	"errors"
	"fmt"
	"math"
)

// PrecedentEntry is a curated reference clause. Read-only to the pipeline.
type PrecedentEntry struct {
	ID           string    `json:"id" yaml:"id"`
	Category     Category  `json:"category" yaml:"category"`
	Text         string    `json:"text" yaml:"text"`
	Embedding    []float64 `json:"embedding,omitempty" yaml:"-"`
	BaselineRisk float64   `json:"baseline_risk" yaml:"baseline_risk"`
}

// Validate checks the entry against the index dimensionality
func (p *PrecedentEntry) Validate(expectedDim int) error {
	if p.ID == "" {
		return errors.New("precedent id cannot be empty")
	}
	if p.Text == "" {
		return fmt.Errorf("precedent %s: text cannot be empty", p.ID)
	}
	if p.BaselineRisk < 0 || p.BaselineRisk > 1 || math.IsNaN(p.BaselineRisk) {
		return fmt.Errorf("precedent %s: baseline risk must be 0-1, got %f", p.ID, p.BaselineRisk)
	}
	if len(p.Embedding) == 0 {
		return fmt.Errorf("precedent %s: embedding cannot be empty", p.ID)
	}
	if expectedDim > 0 && len(p.Embedding) != expectedDim {
		return fmt.Errorf("precedent %s: embedding dimension mismatch: expected %d, got %d", p.ID, expectedDim, len(p.Embedding))
	}
	return nil
}

// Match is one nearest-neighbor hit
type Match struct {
	Precedent  PrecedentEntry `json:"precedent"`
	Similarity float64        `json:"similarity"`
}

// MatchRef is the compact form of a match stored on an assessment
type MatchRef struct {
	PrecedentID  string   `json:"precedent_id"`
	Category     Category `json:"category"`
	Similarity   float64  `json:"similarity"`
	BaselineRisk float64  `json:"baseline_risk"`
}

// Ref converts a match to its compact form
func (m Match) Ref() MatchRef {
	return MatchRef{
		PrecedentID:  m.Precedent.ID,
		Category:     m.Precedent.Category,
		Similarity:   m.Similarity,
		BaselineRisk: m.Precedent.BaselineRisk,
	}
}
