// ABOUTME: Document storage operations for SQLite
// ABOUTME: Persists ingested contracts, their status transitions and SHA lookups
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harper/redliner/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// DocumentStore handles document persistence
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save saves or updates a document (upsert)
func (s *DocumentStore) Save(ctx context.Context, doc *models.Document) error {
	blocksJSON, err := json.Marshal(doc.Blocks)
	if err != nil {
		return err
	}
	ingested := doc.IngestedAt
	if ingested.IsZero() {
		ingested = time.Now()
	}
	status := doc.Status
	if status == "" {
		status = models.StatusPending
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, sha256, blocks, status, status_reason, ingested_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			sha256 = excluded.sha256,
			blocks = excluded.blocks,
			status = excluded.status,
			status_reason = NULL,
			updated_at = excluded.updated_at
	`, doc.ID, nullString(doc.Filename), nullString(doc.SHA256), string(blocksJSON), string(status), ingested, time.Now())
	return err
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, sha256, blocks, status, ingested_at
		FROM documents
		WHERE id = ?
	`, id)
	return scanDocument(row)
}

// GetBySHA returns the most recently ingested document with the given content hash
func (s *DocumentStore) GetBySHA(ctx context.Context, sha string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, sha256, blocks, status, ingested_at
		FROM documents
		WHERE sha256 = ?
		ORDER BY ingested_at DESC
		LIMIT 1
	`, sha)
	return scanDocument(row)
}

// UpdateStatus records a status transition with an optional reason
func (s *DocumentStore) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, status_reason = ?, updated_at = ?
		WHERE id = ?
	`, string(status), nullString(reason), time.Now(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetStatus returns the last recorded status and reason
func (s *DocumentStore) GetStatus(ctx context.Context, id string) (models.DocumentStatus, string, error) {
	var (
		status string
		reason sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT status, status_reason FROM documents WHERE id = ?`, id).Scan(&status, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", "", err
	}
	return models.DocumentStatus(status), reason.String, nil
}

// List returns documents newest first
func (s *DocumentStore) List(ctx context.Context, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, sha256, blocks, status, ingested_at
		FROM documents
		ORDER BY ingested_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc        models.Document
		filename   sql.NullString
		sha        sql.NullString
		blocksJSON string
		status     string
	)
	err := row.Scan(&doc.ID, &filename, &sha, &blocksJSON, &status, &doc.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Filename = filename.String
	doc.SHA256 = sha.String
	doc.Status = models.DocumentStatus(status)
	if err := json.Unmarshal([]byte(blocksJSON), &doc.Blocks); err != nil {
		return nil, fmt.Errorf("failed to decode blocks for %s: %w", doc.ID, err)
	}
	return &doc, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
