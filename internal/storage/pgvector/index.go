// ABOUTME: Postgres precedent index backed by the pgvector extension
// ABOUTME: Implements cosine KNN with an optional category filter over a pgx pool
package pgvector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/harper/redliner/internal/core"
	"github.com/harper/redliner/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// querier is the subset of pgxpool.Pool the index uses
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// HNSW candidate list bounds (pgvector default and maximum)
const (
	defaultEFSearch = 40
	maxEFSearch     = 1000
	// candidates scanned per requested row when a category filter discards index hits
	filteredEFPerRow = 20
)

// Index stores precedents in Postgres and answers similarity queries
type Index struct {
	pool      *pgxpool.Pool
	db        querier
	dimension int
}

var _ core.VectorSearcher = (*Index)(nil)

// Open connects to dsn, ensures the vector extension exists and registers its types
func Open(ctx context.Context, dsn string, dimension int) (*Index, error) {
	// the extension must exist before the pool registers vector types
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	_ = conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	idx := &Index{pool: pool, db: pool, dimension: dimension}
	if err := idx.Initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases the pool
func (i *Index) Close() {
	if i.pool != nil {
		i.pool.Close()
	}
}

// Initialize sets up the precedents table and indices
func (i *Index) Initialize(ctx context.Context) error {
	_, err := i.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS precedents (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			text TEXT NOT NULL,
			baseline_risk DOUBLE PRECISION NOT NULL,
			embedding vector(%d) NOT NULL
		)
	`, i.dimension))
	if err != nil {
		return fmt.Errorf("failed to create precedents table: %w", err)
	}

	_, err = i.db.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS precedents_embedding_idx ON precedents
		USING hnsw (embedding vector_cosine_ops)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	_, err = i.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS precedents_category_idx ON precedents (category)`)
	if err != nil {
		return fmt.Errorf("failed to create category index: %w", err)
	}
	return nil
}

// Save upserts a precedent with its embedding
func (i *Index) Save(ctx context.Context, p *models.PrecedentEntry) error {
	if err := p.Validate(i.dimension); err != nil {
		return err
	}
	_, err := i.db.Exec(ctx, `
		INSERT INTO precedents (id, category, text, baseline_risk, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			text = EXCLUDED.text,
			baseline_risk = EXCLUDED.baseline_risk,
			embedding = EXCLUDED.embedding
	`, p.ID, string(p.Category), p.Text, p.BaselineRisk, toVector(p.Embedding))
	if err != nil {
		return fmt.Errorf("failed to store precedent %s: %w", p.ID, err)
	}
	return nil
}

// List returns precedents without embeddings, optionally for one category
func (i *Index) List(ctx context.Context, category models.Category) ([]models.PrecedentEntry, error) {
	sql := `SELECT id, category, text, baseline_risk FROM precedents`
	var args []any
	if category != "" {
		sql += ` WHERE category = $1`
		args = append(args, string(category))
	}
	sql += ` ORDER BY category, id`

	rows, err := i.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list precedents: %w", err)
	}
	defer rows.Close()

	var out []models.PrecedentEntry
	for rows.Next() {
		var (
			p   models.PrecedentEntry
			cat string
		)
		if err := rows.Scan(&p.ID, &cat, &p.Text, &p.BaselineRisk); err != nil {
			return nil, fmt.Errorf("failed to scan precedent: %w", err)
		}
		p.Category = models.Category(cat)
		out = append(out, p)
	}
	return out, rows.Err()
}

// KNN returns the k nearest precedents by cosine distance.
// The category filter runs after the HNSW scan, so filtered queries widen
// hnsw.ef_search for their transaction to still find k rows.
func (i *Index) KNN(ctx context.Context, vec []float64, filter core.Filter, k int) ([]models.Match, error) {
	if len(vec) != i.dimension {
		return nil, fmt.Errorf("query has dimension %d, index has %d: %w", len(vec), i.dimension, core.ErrDimensionMismatch)
	}

	tx, err := i.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin similarity query: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if ef := efSearch(k, filter.Category != ""); ef != defaultEFSearch {
		if _, err := tx.Exec(ctx, `SELECT set_config('hnsw.ef_search', $1, true)`, strconv.Itoa(ef)); err != nil {
			return nil, fmt.Errorf("failed to set hnsw.ef_search: %w", err)
		}
	}

	sql, args := knnQuery(toVector(vec), filter, k)
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar precedents: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var (
			p        models.PrecedentEntry
			category string
			distance float64
		)
		if err := rows.Scan(&p.ID, &category, &p.Text, &p.BaselineRisk, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan precedent: %w", err)
		}
		p.Category = models.Category(category)
		matches = append(matches, models.Match{Precedent: p, Similarity: 1 - distance})
	}
	return matches, rows.Err()
}

// efSearch sizes the HNSW candidate list for a query returning k rows
func efSearch(k int, filtered bool) int {
	ef := defaultEFSearch
	if k > ef {
		ef = k
	}
	if filtered && k*filteredEFPerRow > ef {
		ef = k * filteredEFPerRow
	}
	if ef > maxEFSearch {
		ef = maxEFSearch
	}
	return ef
}

// knnQuery builds the similarity query; the category predicate is optional
func knnQuery(vec pgv.Vector, filter core.Filter, k int) (string, []any) {
	var b strings.Builder
	args := []any{vec}

	b.WriteString("SELECT id, category, text, baseline_risk, embedding <=> $1 AS distance FROM precedents")
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		fmt.Fprintf(&b, " WHERE category = $%d", len(args))
	}
	args = append(args, k)
	fmt.Fprintf(&b, " ORDER BY embedding <=> $1, baseline_risk DESC, id LIMIT $%d", len(args))
	return b.String(), args
}

func toVector(v []float64) pgv.Vector {
	f := make([]float32, len(v))
	for i, x := range v {
		f[i] = float32(x)
	}
	return pgv.NewVector(f)
}
