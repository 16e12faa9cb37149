// ABOUTME: Unified Store that wraps all SQLite stores
// ABOUTME: Implements the pipeline persister, status reader and precedent searcher
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/harper/redliner/internal/core"
	"github.com/harper/redliner/internal/models"
)

// Store manages all persistent data for redliner using SQLite
type Store struct {
	db         *DB
	documents  *DocumentStore
	clauses    *ClauseStore
	reports    *ReportStore
	precedents *PrecedentStore
}

var (
	_ core.Persister      = (*Store)(nil)
	_ core.StatusReader   = (*Store)(nil)
	_ core.VectorSearcher = (*PrecedentStore)(nil)
)

// NewStore opens the database at the default XDG path
func NewStore() (*Store, error) {
	return NewStoreWithPath(DefaultDBPath())
}

// NewStoreWithPath opens the database at dbPath
func NewStoreWithPath(dbPath string) (*Store, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStore(db), nil
}

// NewStoreInMemory creates an in-memory store (for testing)
func NewStoreInMemory() (*Store, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newStore(db), nil
}

func newStore(db *DB) *Store {
	return &Store{
		db:         db,
		documents:  NewDocumentStore(db),
		clauses:    NewClauseStore(db),
		reports:    NewReportStore(db),
		precedents: NewPrecedentStore(db),
	}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database
func (s *Store) DB() *DB {
	return s.db
}

// Precedents returns the precedent store
func (s *Store) Precedents() *PrecedentStore {
	return s.precedents
}

// SaveDocument records a newly registered document
func (s *Store) SaveDocument(ctx context.Context, doc *models.Document) error {
	return s.documents.Save(ctx, doc)
}

// SaveClauses replaces the labeled clauses of a document
func (s *Store) SaveClauses(ctx context.Context, documentID string, clauses []models.Clause) error {
	return s.clauses.SaveAll(ctx, documentID, clauses)
}

// SaveReport stores a finished report and its assessments
func (s *Store) SaveReport(ctx context.Context, report *models.DocumentReport) error {
	return s.reports.Save(ctx, report)
}

// UpdateStatus records a pipeline state transition
func (s *Store) UpdateStatus(ctx context.Context, documentID string, status models.DocumentStatus, reason string) error {
	return s.documents.UpdateStatus(ctx, documentID, status, reason)
}

// GetStatus returns the last recorded state and reason
func (s *Store) GetStatus(ctx context.Context, documentID string) (models.DocumentStatus, string, error) {
	return s.documents.GetStatus(ctx, documentID)
}

// GetDocument retrieves a document by ID
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.documents.Get(ctx, id)
}

// ListDocuments returns up to limit documents, newest first
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]models.Document, error) {
	return s.documents.List(ctx, limit)
}

// DocumentBySHA finds a previously ingested document by content hash.
// It returns nil without error when none exists.
func (s *Store) DocumentBySHA(ctx context.Context, sha string) (*models.Document, error) {
	doc, err := s.documents.GetBySHA(ctx, sha)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

// GetClauses returns the labeled clauses of a document
func (s *Store) GetClauses(ctx context.Context, documentID string) ([]models.Clause, error) {
	return s.clauses.List(ctx, documentID)
}

// GetReport retrieves the finished report of a document
func (s *Store) GetReport(ctx context.Context, documentID string) (*models.DocumentReport, error) {
	return s.reports.Get(ctx, documentID)
}

// ListRisks returns stored assessments matching q
func (s *Store) ListRisks(ctx context.Context, q RiskQuery) ([]models.RiskAssessment, error) {
	return s.reports.ListRisks(ctx, q)
}
