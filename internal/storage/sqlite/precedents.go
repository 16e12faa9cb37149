// ABOUTME: Precedent storage for SQLite with vectors stored as BLOBs
// ABOUTME: Implements in-process cosine KNN with an optional category filter
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/harper/redliner/internal/core"
	"github.com/harper/redliner/internal/models"
)

// PrecedentStore handles precedent persistence and similarity search
type PrecedentStore struct {
	db *DB
}

// NewPrecedentStore creates a new PrecedentStore
func NewPrecedentStore(db *DB) *PrecedentStore {
	return &PrecedentStore{db: db}
}

// Save inserts or replaces a precedent; the embedding must be present
func (s *PrecedentStore) Save(ctx context.Context, p *models.PrecedentEntry) error {
	if len(p.Embedding) == 0 {
		return fmt.Errorf("precedent %s has no embedding", p.ID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO precedents (id, category, text, baseline_risk, vector, dimension, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			text = excluded.text,
			baseline_risk = excluded.baseline_risk,
			vector = excluded.vector,
			dimension = excluded.dimension
	`, p.ID, string(p.Category), p.Text, p.BaselineRisk, vectorToBlob(p.Embedding), len(p.Embedding), time.Now())
	return err
}

// Get retrieves a precedent by ID
func (s *PrecedentStore) Get(ctx context.Context, id string) (*models.PrecedentEntry, error) {
	var (
		p        models.PrecedentEntry
		category string
		blob     []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, category, text, baseline_risk, vector FROM precedents WHERE id = ?
	`, id).Scan(&p.ID, &category, &p.Text, &p.BaselineRisk, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("precedent %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	p.Category = models.Category(category)
	p.Embedding = blobToVector(blob)
	return &p, nil
}

// List returns precedents without their vectors, optionally for one category
func (s *PrecedentStore) List(ctx context.Context, category models.Category) ([]models.PrecedentEntry, error) {
	query := `SELECT id, category, text, baseline_risk FROM precedents`
	var args []interface{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY category ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.PrecedentEntry
	for rows.Next() {
		var (
			p   models.PrecedentEntry
			cat string
		)
		if err := rows.Scan(&p.ID, &cat, &p.Text, &p.BaselineRisk); err != nil {
			return nil, err
		}
		p.Category = models.Category(cat)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of stored precedents
func (s *PrecedentStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM precedents`).Scan(&n)
	return n, err
}

// KNN scans the corpus and returns the k most similar precedents
func (s *PrecedentStore) KNN(ctx context.Context, vec []float64, filter core.Filter, k int) ([]models.Match, error) {
	query := `SELECT id, category, text, baseline_risk, vector, dimension FROM precedents`
	var args []interface{}
	if filter.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(filter.Category))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []models.Match
	for rows.Next() {
		var (
			p        models.PrecedentEntry
			category string
			blob     []byte
			dim      int
		)
		if err := rows.Scan(&p.ID, &category, &p.Text, &p.BaselineRisk, &blob, &dim); err != nil {
			return nil, err
		}
		if dim != len(vec) {
			return nil, fmt.Errorf("precedent %s has dimension %d, query has %d: %w", p.ID, dim, len(vec), core.ErrDimensionMismatch)
		}
		p.Category = models.Category(category)
		results = append(results, models.Match{
			Precedent:  p,
			Similarity: core.CosineSimilarity(vec, blobToVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Same order as core.RankMatches so truncation keeps the riskier of tied entries
	sort.SliceStable(results, func(i, j int) bool { return core.MatchLess(results[i], results[j]) })

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// vectorToBlob converts a float64 slice to binary blob
func vectorToBlob(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float64 slice
func blobToVector(blob []byte) []float64 {
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(blob[i*8:])
		vector[i] = math.Float64frombits(bits)
	}
	return vector
}
