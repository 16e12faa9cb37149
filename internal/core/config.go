// ABOUTME: Immutable pipeline configuration passed into the orchestrator
// ABOUTME: Holds K, labeling thresholds, rank weights, tier cut points and retry policy
package core

import (
	"fmt"
	"math"
	"time"

	"github.com/harper/redliner/internal/models"
	"github.com/harper/redliner/internal/util"
)

// RankWeights weight precedent matches by rank. Ranks 3 and later share 1-First-Second evenly.
type RankWeights struct {
	First  float64
	Second float64
}

// Config is the pipeline policy. Values are copied into the orchestrator at construction.
type Config struct {
	TopK                int
	LabelThreshold      float64 // minimum label confidence to restrict KNN to the clause category
	ModelLabelThreshold float64 // rule confidence below this consults the model labeler
	UnknownRisk         float64
	RankWeights         RankWeights
	Thresholds          models.Thresholds
	CategoryWeights     map[models.Category]float64
	HeuristicFloor      bool

	RedlineMaxLength int
	RedlineContext   int // precedents included in the drafting prompt

	Retry         util.Policy
	Concurrency   int
	SegmentWindow int
	MaxEmbedChars int
	Dimension     int
	TopRisks      int
}

// DefaultConfig returns the default pipeline policy
func DefaultConfig() Config {
	return Config{
		TopK:                5,
		LabelThreshold:      0.6,
		ModelLabelThreshold: 0.5,
		UnknownRisk:         0.5,
		RankWeights:         RankWeights{First: 0.5, Second: 0.3},
		Thresholds:          models.DefaultThresholds(),
		RedlineMaxLength:    4000,
		RedlineContext:      3,
		Retry:               util.Policy{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second},
		Concurrency:         4,
		SegmentWindow:       1200,
		MaxEmbedChars:       8000,
		Dimension:           1536,
		TopRisks:            5,
	}
}

// Validate checks ranges and internal consistency
func (c Config) Validate() error {
	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("top k must be 1-100, got %d", c.TopK)
	}
	if !inUnit(c.LabelThreshold) {
		return fmt.Errorf("label threshold must be 0-1, got %f", c.LabelThreshold)
	}
	if !inUnit(c.ModelLabelThreshold) {
		return fmt.Errorf("model label threshold must be 0-1, got %f", c.ModelLabelThreshold)
	}
	if !inUnit(c.UnknownRisk) {
		return fmt.Errorf("unknown clause risk must be 0-1, got %f", c.UnknownRisk)
	}
	if c.RankWeights.First <= 0 || c.RankWeights.Second < 0 || c.RankWeights.First+c.RankWeights.Second > 1 {
		return fmt.Errorf("rank weights must be positive and sum to at most 1, got %.2f/%.2f",
			c.RankWeights.First, c.RankWeights.Second)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	for cat, w := range c.CategoryWeights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("category weight for %s must be a non-negative number, got %f", cat, w)
		}
	}
	if c.RedlineMaxLength < 1 {
		return fmt.Errorf("redline max length must be positive, got %d", c.RedlineMaxLength)
	}
	if c.Retry.Attempts < 1 || c.Retry.Attempts > 10 {
		return fmt.Errorf("retry attempts must be 1-10, got %d", c.Retry.Attempts)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.SegmentWindow < 64 {
		return fmt.Errorf("segment window must be at least 64, got %d", c.SegmentWindow)
	}
	if c.MaxEmbedChars < 1 {
		return fmt.Errorf("max embed chars must be positive, got %d", c.MaxEmbedChars)
	}
	if c.Dimension < 1 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Dimension)
	}
	return nil
}

// CategoryWeight returns the multiplier for a category, 1.0 when unset
func (c Config) CategoryWeight(cat models.Category) float64 {
	if w, ok := c.CategoryWeights[cat]; ok {
		return w
	}
	return 1.0
}

// clone copies reference fields so later caller mutation cannot leak into a running orchestrator
func (c Config) clone() Config {
	if c.CategoryWeights != nil {
		weights := make(map[models.Category]float64, len(c.CategoryWeights))
		for k, v := range c.CategoryWeights {
			weights[k] = v
		}
		c.CategoryWeights = weights
	}
	return c
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
