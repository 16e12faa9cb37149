// ABOUTME: Clause storage operations for SQLite
// ABOUTME: Replaces a document's labeled clauses atomically and lists them by position
package sqlite

import (
	"context"
	"database/sql"

	"github.com/harper/redliner/internal/models"
)

// ClauseStore handles clause persistence
type ClauseStore struct {
	db *DB
}

// NewClauseStore creates a new ClauseStore
func NewClauseStore(db *DB) *ClauseStore {
	return &ClauseStore{db: db}
}

// SaveAll replaces every clause of documentID in one transaction
func (s *ClauseStore) SaveAll(ctx context.Context, documentID string, clauses []models.Clause) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM clauses WHERE document_id = ?`, documentID); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO clauses (id, document_id, position, start_offset, end_offset, hint, heading, text, category, confidence, label_source)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := range clauses {
			c := &clauses[i]
			if _, err := stmt.ExecContext(ctx, c.ID, documentID, c.Position, c.Span.Start, c.Span.End,
				nullString(string(c.Span.Hint)), nullString(c.Span.Heading), c.Span.Text,
				string(c.Category), c.Confidence, nullString(c.LabelSource)); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns the clauses of documentID ordered by position
func (s *ClauseStore) List(ctx context.Context, documentID string) ([]models.Clause, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, position, start_offset, end_offset, hint, heading, text, category, confidence, label_source
		FROM clauses
		WHERE document_id = ?
		ORDER BY position ASC
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var clauses []models.Clause
	for rows.Next() {
		var (
			c                     models.Clause
			hint, heading, source sql.NullString
			category              string
		)
		if err := rows.Scan(&c.ID, &c.Position, &c.Span.Start, &c.Span.End, &hint, &heading,
			&c.Span.Text, &category, &c.Confidence, &source); err != nil {
			return nil, err
		}
		c.DocumentID = documentID
		c.Span.Hint = models.SpanHint(hint.String)
		c.Span.Heading = heading.String
		c.Category = models.Category(category)
		c.LabelSource = source.String
		clauses = append(clauses, c)
	}
	return clauses, rows.Err()
}
