// ABOUTME: Report storage operations for SQLite
// ABOUTME: Stores finished reports as JSON and indexes assessments for risk queries
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/harper/redliner/internal/models"
)

// ReportStore handles report persistence
type ReportStore struct {
	db *DB
}

// NewReportStore creates a new ReportStore
func NewReportStore(db *DB) *ReportStore {
	return &ReportStore{db: db}
}

// Save writes the report body and replaces its assessment rows
func (s *ReportStore) Save(ctx context.Context, report *models.DocumentReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	var maxSeverity sql.NullInt64
	if report.Summary.MaxSeverity != nil {
		maxSeverity = sql.NullInt64{Int64: int64(*report.Summary.MaxSeverity), Valid: true}
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reports (document_id, body, max_severity, generated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(document_id) DO UPDATE SET
				body = excluded.body,
				max_severity = excluded.max_severity,
				generated_at = excluded.generated_at
		`, report.DocumentID, string(body), maxSeverity, report.GeneratedAt); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE document_id = ?`, report.DocumentID); err != nil {
			return err
		}
		for i := range report.Assessments {
			a := &report.Assessments[i]
			aBody, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("failed to encode assessment %s: %w", a.ClauseID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO assessments (clause_id, document_id, position, category, score, severity, body)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, a.ClauseID, report.DocumentID, a.Position, string(a.Category), a.Score, int(a.Severity), string(aBody)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get retrieves the report for documentID
func (s *ReportStore) Get(ctx context.Context, documentID string) (*models.DocumentReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM reports WHERE document_id = ?`, documentID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var report models.DocumentReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", documentID, err)
	}
	return &report, nil
}

// RiskQuery narrows ListRisks; zero values match everything
type RiskQuery struct {
	DocumentID  string
	MinSeverity models.Severity
	Category    models.Category
	Limit       int
}

// ListRisks returns assessments at or above MinSeverity, highest score first
func (s *ReportStore) ListRisks(ctx context.Context, q RiskQuery) ([]models.RiskAssessment, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.DocumentID != "" {
		where = append(where, "document_id = ?")
		args = append(args, q.DocumentID)
	}
	where = append(where, "severity >= ?")
	args = append(args, int(q.MinSeverity))
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(q.Category))
	}

	query := "SELECT body FROM assessments WHERE " + strings.Join(where, " AND ") +
		" ORDER BY score DESC, position ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	risks := []models.RiskAssessment{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var a models.RiskAssessment
		if err := json.Unmarshal([]byte(body), &a); err != nil {
			return nil, fmt.Errorf("failed to decode assessment: %w", err)
		}
		risks = append(risks, a)
	}
	return risks, rows.Err()
}
