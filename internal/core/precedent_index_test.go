// ABOUTME: Tests for precedent lookup policy
// ABOUTME: Verifies category filtering, conservative tie-break, truncation and failure handling
package core

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/harper/redliner/internal/models"
)

func TestPrecedentIndex_FilterFor(t *testing.T) {
	idx := NewPrecedentIndex(&scriptedSearcher{}, testConfig(), nil, nil)

	tests := []struct {
		name   string
		clause models.Clause
		want   Filter
	}{
		{"confident label", models.Clause{Category: models.CategoryTermination, Confidence: 0.85}, Filter{Category: models.CategoryTermination}},
		{"at threshold", models.Clause{Category: models.CategoryFees, Confidence: 0.6}, Filter{Category: models.CategoryFees}},
		{"below threshold", models.Clause{Category: models.CategoryFees, Confidence: 0.59}, Filter{}},
		{"unclassified", models.Clause{Category: models.CategoryUnclassified, Confidence: 0}, Filter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.FilterFor(&tt.clause); got != tt.want {
				t.Errorf("FilterFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRankMatches_TieBreakPrefersHigherRisk(t *testing.T) {
	raw := []models.Match{
		match("low", models.CategoryFees, 0.8, 0.2),
		match("high", models.CategoryFees, 0.8, 0.9),
		match("best", models.CategoryFees, 0.95, 0.1),
		match("mid-b", models.CategoryFees, 0.8, 0.5),
		match("mid-a", models.CategoryFees, 0.8, 0.5),
	}

	got := RankMatches(raw, Filter{}, 5)
	want := []string{"best", "high", "mid-a", "mid-b", "low"}
	for i, id := range want {
		if got[i].Precedent.ID != id {
			t.Errorf("rank %d = %s, want %s", i, got[i].Precedent.ID, id)
		}
	}
}

func TestRankMatches_NearEqualSimilarityIsATie(t *testing.T) {
	raw := []models.Match{
		match("safer", models.CategoryFees, 0.7+1e-12, 0.1),
		match("riskier", models.CategoryFees, 0.7, 0.9),
	}
	if got := RankMatches(raw, Filter{}, 2); got[0].Precedent.ID != "riskier" {
		t.Errorf("first = %s, want riskier", got[0].Precedent.ID)
	}
}

func TestRankMatches_DropsInvalidAndOffFilter(t *testing.T) {
	raw := []models.Match{
		match("nan", models.CategoryFees, math.NaN(), 0.5),
		match("other-category", models.CategoryTermination, 0.99, 0.5),
		match("over-one", models.CategoryFees, 1.0000001, 0.5),
		match("ok", models.CategoryFees, 0.5, 0.5),
	}
	got := RankMatches(raw, Filter{Category: models.CategoryFees}, 5)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].Precedent.ID != "over-one" || got[0].Similarity != 1 {
		t.Errorf("first = %s at %v, want over-one clamped to 1", got[0].Precedent.ID, got[0].Similarity)
	}
}

func TestPrecedentIndex_LookupTruncatesToK(t *testing.T) {
	cfg := testConfig()
	cfg.TopK = 2
	var entries []models.PrecedentEntry
	for i, v := range [][]float64{{1, 0, 0, 0}, {0.9, 0.1, 0, 0}, {0.5, 0.5, 0, 0}, {0, 1, 0, 0}} {
		entries = append(entries, models.PrecedentEntry{
			ID: string(rune('a' + i)), Category: models.CategoryFees, Embedding: v, BaselineRisk: 0.5,
		})
	}
	idx := NewPrecedentIndex(&corpusSearcher{entries: entries}, cfg, nil, nil)

	clause := &models.Clause{Category: models.CategoryFees, Confidence: 0.9}
	got, err := idx.Lookup(context.Background(), clause, []float64{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(got) != 2 || got[0].Precedent.ID != "a" || got[1].Precedent.ID != "b" {
		t.Errorf("Lookup() = %+v, want a, b", got)
	}
}

func TestPrecedentIndex_EmptyIndexYieldsNoMatches(t *testing.T) {
	idx := NewPrecedentIndex(&corpusSearcher{}, testConfig(), nil, nil)
	got, err := idx.Lookup(context.Background(), &models.Clause{Category: models.CategoryFees, Confidence: 0.9}, []float64{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("Lookup() error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d matches, want 0", len(got))
	}
}

func TestPrecedentIndex_FilteredQueryDoesNotWiden(t *testing.T) {
	entries := []models.PrecedentEntry{
		{ID: "t1", Category: models.CategoryTermination, Embedding: []float64{1, 0, 0, 0}, BaselineRisk: 0.9},
	}
	idx := NewPrecedentIndex(&corpusSearcher{entries: entries}, testConfig(), nil, nil)
	got, err := idx.Lookup(context.Background(), &models.Clause{Category: models.CategoryFees, Confidence: 0.9}, []float64{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d matches, want 0 for a category with no precedents", len(got))
	}
}

func TestPrecedentIndex_FailureAfterRetries(t *testing.T) {
	searcher := &scriptedSearcher{err: errors.New("connection refused")}
	idx := NewPrecedentIndex(searcher, testConfig(), nil, nil)

	_, err := idx.Lookup(context.Background(), &models.Clause{}, []float64{1, 0, 0, 0})
	var idxErr *PrecedentIndexError
	if !errors.As(err, &idxErr) {
		t.Fatalf("error = %v, want *PrecedentIndexError", err)
	}
	if searcher.calls != 3 || idxErr.Attempts != 3 {
		t.Errorf("calls = %d, attempts = %d, want 3 and 3", searcher.calls, idxErr.Attempts)
	}
}

func TestPrecedentIndex_DimensionMismatch(t *testing.T) {
	searcher := &scriptedSearcher{}
	idx := NewPrecedentIndex(searcher, testConfig(), nil, nil)

	_, err := idx.Lookup(context.Background(), &models.Clause{}, []float64{1, 0})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("error = %v, want ErrDimensionMismatch", err)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times, want 0", searcher.calls)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"length mismatch", []float64{1}, []float64{1, 0}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
