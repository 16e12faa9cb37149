// ABOUTME: Precedent index query construction and result interpretation over a VectorSearcher
// ABOUTME: Applies the category filter policy, conservative tie-break and top-K truncation
package core

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/harper/redliner/internal/models"
	"github.com/harper/redliner/internal/util"
)

// Filter restricts a KNN query. An empty Category searches every category.
type Filter struct {
	Category models.Category
}

// VectorSearcher is the vector database collaborator. Results need not be sorted.
type VectorSearcher interface {
	KNN(ctx context.Context, vec []float64, filter Filter, k int) ([]models.Match, error)
}

// PrecedentIndex is read-only during a run and safe for concurrent use
type PrecedentIndex struct {
	searcher       VectorSearcher
	k              int
	labelThreshold float64
	dim            int
	retry          util.Policy
	observer       Observer
	logger         *log.Logger
}

// NewPrecedentIndex creates an index over searcher
func NewPrecedentIndex(searcher VectorSearcher, cfg Config, observer Observer, logger *log.Logger) *PrecedentIndex {
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PrecedentIndex{
		searcher:       searcher,
		k:              cfg.TopK,
		labelThreshold: cfg.LabelThreshold,
		dim:            cfg.Dimension,
		retry:          cfg.Retry,
		observer:       observer,
		logger:         logger.WithPrefix("precedents"),
	}
}

// FilterFor returns the category filter for a clause: its own category when the
// label is known and confident enough, otherwise no filter.
func (p *PrecedentIndex) FilterFor(clause *models.Clause) Filter {
	if clause.IsClassified() && clause.Confidence >= p.labelThreshold {
		return Filter{Category: clause.Category}
	}
	return Filter{}
}

// Lookup returns up to K matches for the clause, best first. An empty index or an
// empty filtered subset yields no matches and no error. Failures after retries
// return a PrecedentIndexError; callers treat it as zero matches.
func (p *PrecedentIndex) Lookup(ctx context.Context, clause *models.Clause, vec []float64) ([]models.Match, error) {
	if p.dim > 0 && len(vec) != p.dim {
		return nil, &PrecedentIndexError{Attempts: 0, Err: ErrDimensionMismatch}
	}
	filter := p.FilterFor(clause)

	var raw []models.Match
	attempts, err := util.Do(ctx, p.retry, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			p.observer.Retry("precedent_index")
			p.logger.Debug("retrying precedent search", "clause", clause.Position, "attempt", attempt)
		}
		m, err := p.searcher.KNN(ctx, vec, filter, 2*p.k)
		if err != nil {
			if errors.Is(err, ErrDimensionMismatch) {
				return util.Permanent(err)
			}
			return err
		}
		raw = m
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("precedent search failed", "clause", clause.Position, "attempts", attempts, "err", err)
		return nil, &PrecedentIndexError{Attempts: attempts, Err: err}
	}

	return RankMatches(raw, filter, p.k), nil
}

// RankMatches drops invalid or off-filter hits, orders by similarity with ties broken
// by higher baseline risk then id, and keeps the first k.
func RankMatches(raw []models.Match, filter Filter, k int) []models.Match {
	out := make([]models.Match, 0, len(raw))
	for _, m := range raw {
		if math.IsNaN(m.Similarity) || math.IsInf(m.Similarity, 0) {
			continue
		}
		if filter.Category != "" && m.Precedent.Category != filter.Category {
			continue
		}
		m.Similarity = math.Max(-1, math.Min(1, m.Similarity))
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool { return MatchLess(out[i], out[j]) })

	if len(out) > k {
		out = out[:k]
	}
	return out
}

// MatchLess orders matches by similarity descending, then higher baseline risk, then id.
// Backends that truncate before RankMatches must sort with it too.
func MatchLess(a, b models.Match) bool {
	sa, sb := roundSimilarity(a.Similarity), roundSimilarity(b.Similarity)
	if sa != sb {
		return sa > sb
	}
	if a.Precedent.BaselineRisk != b.Precedent.BaselineRisk {
		return a.Precedent.BaselineRisk > b.Precedent.BaselineRisk
	}
	return a.Precedent.ID < b.Precedent.ID
}

// roundSimilarity absorbs float noise so near-identical scores count as ties
func roundSimilarity(s float64) float64 {
	return math.Round(s*1e9) / 1e9
}

// CosineSimilarity returns the cosine of the angle between a and b, 0 when undefined
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
