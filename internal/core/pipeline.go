// ABOUTME: Orchestrator sequencing segmentation, labeling, embedding, scoring and redlining
// ABOUTME: Fans out per clause within each stage and joins before advancing the document state
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/redliner/internal/models"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning is returned when a document id already has a run in flight
var ErrAlreadyRunning = errors.New("document is already being processed")

// Persister is the storage collaborator for pipeline artifacts
type Persister interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	SaveClauses(ctx context.Context, documentID string, clauses []models.Clause) error
	SaveReport(ctx context.Context, report *models.DocumentReport) error
	UpdateStatus(ctx context.Context, documentID string, status models.DocumentStatus, reason string) error
}

// StatusReader is implemented by persisters that can answer status queries for
// documents this process has not seen
type StatusReader interface {
	GetStatus(ctx context.Context, documentID string) (models.DocumentStatus, string, error)
}

// Deps are the collaborators a pipeline run needs. Drafter may be nil.
type Deps struct {
	Labeler  Labeler
	Embedder Embedder
	Searcher VectorSearcher
	Drafter  Drafter
}

// Status is the inspection view of one document
type Status struct {
	State     models.DocumentStatus `json:"state"`
	Reason    string                `json:"reason,omitempty"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithPersister writes documents, clauses, status transitions and reports through p
func WithPersister(p Persister) Option {
	return func(o *Orchestrator) { o.persister = p }
}

// WithObserver sends pipeline events to obs
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs documents through the pipeline. Safe for concurrent runs of different documents.
type Orchestrator struct {
	cfg       Config
	deps      Deps
	segmenter *Segmenter
	index     *PrecedentIndex
	scorer    *RiskScorer
	redliner  *RedlineGenerator
	persister Persister
	observer  Observer
	logger    *log.Logger
	now       func() time.Time

	mu     sync.RWMutex
	status map[string]Status
}

// NewOrchestrator validates cfg and wires the stage components
func NewOrchestrator(cfg Config, deps Deps, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if deps.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if deps.Searcher == nil {
		return nil, errors.New("vector searcher is required")
	}
	if deps.Labeler == nil {
		deps.Labeler = NewRuleLabeler()
	}

	o := &Orchestrator{
		cfg:      cfg.clone(),
		deps:     deps,
		observer: NopObserver{},
		logger:   log.Default(),
		now:      time.Now,
		status:   make(map[string]Status),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithPrefix("pipeline")

	o.segmenter = NewSegmenter(o.cfg.SegmentWindow)
	o.index = NewPrecedentIndex(deps.Searcher, o.cfg, o.observer, o.logger)
	o.scorer = NewRiskScorer(o.cfg)
	o.redliner = NewRedlineGenerator(deps.Drafter, o.cfg, o.observer, o.logger)
	return o, nil
}

// Config returns the orchestrator's policy
func (o *Orchestrator) Config() Config {
	return o.cfg.clone()
}

// GetStatus returns the pipeline state of a document. Documents unknown to this
// process are looked up through the persister when it supports status reads.
func (o *Orchestrator) GetStatus(documentID string) (Status, bool) {
	o.mu.RLock()
	st, ok := o.status[documentID]
	o.mu.RUnlock()
	if ok {
		return st, true
	}

	if reader, ok := o.persister.(StatusReader); ok {
		state, reason, err := reader.GetStatus(context.Background(), documentID)
		if err == nil && state != "" {
			return Status{State: state, Reason: reason}, true
		}
	}
	return Status{}, false
}

// run holds the per-document working set. Slices are indexed by clause position;
// each stage task writes only its own index.
type run struct {
	doc       *models.Document
	clauses   []models.Clause
	vectors   [][]float64
	skipped   []string
	assess    []*models.RiskAssessment
	redlines  []*models.RedlineSuggestion
	issues    [][]models.Issue
	docIssues []models.Issue
}

func (r *run) addIssue(i int, stage string, kind models.IssueKind, err error) {
	r.issues[i] = append(r.issues[i], models.Issue{
		ClauseID: r.clauses[i].ID,
		Position: i,
		Stage:    stage,
		Kind:     kind,
		Message:  err.Error(),
	})
}

// RunPipeline processes one document to completion. It returns a report only when
// the document reaches Complete; otherwise it returns a *PipelineFailedError.
func (o *Orchestrator) RunPipeline(ctx context.Context, doc *models.Document) (*models.DocumentReport, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = o.now()
	}
	if err := o.begin(doc.ID); err != nil {
		return nil, err
	}

	started := o.now()
	logger := o.logger.With("document", doc.ID)
	r := &run{doc: doc}

	doc.Status = models.StatusPending
	if o.persister != nil {
		if err := o.persister.SaveDocument(ctx, doc); err != nil {
			logger.Warn("failed to persist document", "err", err)
			r.docIssues = append(r.docIssues, models.Issue{Position: -1, Stage: "ingest", Kind: models.IssuePersistence, Message: err.Error()})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, o.fail(r, started, ReasonCancelled, err)
	}

	spans, err := o.segmenter.Segment(doc)
	if err != nil {
		return nil, o.fail(r, started, "segmentation", err)
	}
	r.init(doc, spans)
	o.advance(ctx, r, models.StatusSegmented)
	logger.Debug("segmented", "clauses", len(spans))

	embedder := NewEmbeddingGenerator(o.deps.Embedder, o.cfg, o.observer, o.logger)
	stages := []struct {
		name string
		next models.DocumentStatus
		task func(ctx context.Context, r *run, i int)
	}{
		{"label", models.StatusLabeled, o.labelClause},
		{"embed", models.StatusEmbedded, func(ctx context.Context, r *run, i int) { o.embedClause(ctx, r, i, embedder) }},
		{"score", models.StatusScored, o.scoreClause},
	}
	for _, stage := range stages {
		o.fanOut(ctx, r, stage.name, stage.task)
		if err := ctx.Err(); err != nil {
			return nil, o.fail(r, started, ReasonCancelled, err)
		}
		if stage.next == models.StatusLabeled && o.persister != nil {
			if err := o.persister.SaveClauses(ctx, doc.ID, r.clauses); err != nil {
				logger.Warn("failed to persist clauses", "err", err)
				r.docIssues = append(r.docIssues, models.Issue{Position: -1, Stage: "label", Kind: models.IssuePersistence, Message: err.Error()})
			}
		}
		o.advance(ctx, r, stage.next)
	}

	if err := ctx.Err(); err != nil {
		return nil, o.fail(r, started, ReasonCancelled, err)
	}

	// Past this point the run commits: the report is saved and the document
	// reaches Complete even if ctx is cancelled meanwhile.
	commit := context.WithoutCancel(ctx)
	report := o.assemble(r)
	if o.persister != nil {
		if err := o.persister.SaveReport(commit, report); err != nil {
			logger.Warn("failed to persist report", "err", err)
			report.Issues = append(report.Issues, models.Issue{Position: -1, Stage: "report", Kind: models.IssuePersistence, Message: err.Error()})
		}
	}

	o.advance(commit, r, models.StatusComplete)
	for _, c := range report.Clauses {
		o.observer.ClauseFinished(c.Outcome, c.Unclassified)
	}
	o.observer.DocumentFinished(models.StatusComplete, o.now().Sub(started))
	logger.Info("analysis complete",
		"clauses", report.Summary.Clauses,
		"scored", report.Summary.Scored,
		"skipped", report.Summary.Skipped,
		"redlines", report.Summary.Redlines,
		"issues", len(report.Issues))
	return report, nil
}

func (r *run) init(doc *models.Document, spans []models.Span) {
	n := len(spans)
	r.clauses = make([]models.Clause, n)
	for i, sp := range spans {
		r.clauses[i] = models.Clause{
			ID:         ClauseID(doc.ID, i),
			DocumentID: doc.ID,
			Position:   i,
			Span:       sp,
			Category:   models.CategoryUnclassified,
		}
	}
	r.vectors = make([][]float64, n)
	r.skipped = make([]string, n)
	r.assess = make([]*models.RiskAssessment, n)
	r.redlines = make([]*models.RedlineSuggestion, n)
	r.issues = make([][]models.Issue, n)
}

// ClauseID derives a stable clause id from the document id and position
func ClauseID(documentID string, position int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", documentID, position))).String()
}

// fanOut runs task for every clause with bounded concurrency and waits for all of them.
// A panicking task is recorded as an issue on its clause and does not affect siblings.
func (o *Orchestrator) fanOut(ctx context.Context, r *run, stage string, task func(ctx context.Context, r *run, i int)) {
	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i := range r.clauses {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					o.logger.Error("clause task panicked", "document", r.doc.ID, "clause", i, "stage", stage, "panic", rec)
					r.addIssue(i, stage, models.IssueTaskPanic, fmt.Errorf("panic: %v", rec))
					if stage != "label" && r.assess[i] == nil {
						r.skipped[i] = "internal error during " + stage
					}
				}
			}()
			if ctx.Err() != nil {
				return nil
			}
			task(ctx, r, i)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) labelClause(ctx context.Context, r *run, i int) {
	c := &r.clauses[i]
	label, err := o.deps.Labeler.Label(ctx, c.Text())
	if err != nil {
		r.addIssue(i, "label", models.IssueLabelingFallback, err)
		c.Category, c.Confidence, c.LabelSource = models.CategoryUnclassified, 0.0, "fallback"
		return
	}
	if label.Fallback != nil {
		r.addIssue(i, "label", models.IssueLabelingFallback, label.Fallback)
	}
	if label.Category == "" {
		label.Category = models.CategoryUnclassified
	}
	if label.Category == models.CategoryUnclassified {
		label.Confidence = 0.0
	}
	c.Category, c.Confidence, c.LabelSource = label.Category, label.Confidence, label.Source
}

func (o *Orchestrator) embedClause(ctx context.Context, r *run, i int, g *EmbeddingGenerator) {
	text := strings.TrimSpace(r.clauses[i].Text())
	if text == "" {
		r.skipped[i] = "no text"
		return
	}
	vec, err := g.Generate(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.addIssue(i, "embed", models.IssueEmbeddingUnavailable, err)
		r.skipped[i] = "embedding unavailable"
		return
	}
	r.vectors[i] = vec
}

func (o *Orchestrator) scoreClause(ctx context.Context, r *run, i int) {
	if r.vectors[i] == nil {
		return
	}
	c := &r.clauses[i]

	matches, err := o.index.Lookup(ctx, c, r.vectors[i])
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.addIssue(i, "lookup", models.IssuePrecedentIndex, err)
		matches = nil
	}

	a := o.scorer.Score(c, matches)
	r.assess[i] = &a

	if a.Severity.NeedsRedline() {
		s, issues := o.redliner.Generate(ctx, c, &a, matches)
		r.issues[i] = append(r.issues[i], issues...)
		if ctx.Err() != nil {
			return
		}
		r.redlines[i] = &s
	}
}

func (o *Orchestrator) assemble(r *run) *models.DocumentReport {
	report := &models.DocumentReport{
		DocumentID:  r.doc.ID,
		Filename:    r.doc.Filename,
		GeneratedAt: o.now(),
		Clauses:     make([]models.ClauseResult, 0, len(r.clauses)),
		Assessments: []models.RiskAssessment{},
		Redlines:    []models.RedlineSuggestion{},
		Issues:      append([]models.Issue{}, r.docIssues...),
	}

	for i, c := range r.clauses {
		res := models.ClauseResult{
			ClauseID:     c.ID,
			Position:     c.Position,
			Start:        c.Span.Start,
			End:          c.Span.End,
			Category:     c.Category,
			Confidence:   c.Confidence,
			Unclassified: !c.IsClassified(),
		}
		if a := r.assess[i]; a != nil {
			res.Outcome = models.OutcomeScored
			report.Assessments = append(report.Assessments, *a)
		} else {
			res.Outcome = models.OutcomeSkipped
			res.SkipReason = r.skipped[i]
			if res.SkipReason == "" {
				res.SkipReason = "not scored"
			}
		}
		if s := r.redlines[i]; s != nil {
			report.Redlines = append(report.Redlines, *s)
		}
		report.Clauses = append(report.Clauses, res)
		report.Issues = append(report.Issues, r.issues[i]...)
	}

	report.Summary = models.Summarize(report.Clauses, report.Assessments, len(report.Redlines), o.cfg.TopRisks)
	return report
}

func (o *Orchestrator) begin(documentID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st, ok := o.status[documentID]; ok && !st.State.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, documentID)
	}
	o.status[documentID] = Status{State: models.StatusPending, UpdatedAt: o.now()}
	return nil
}

func (o *Orchestrator) setStatus(ctx context.Context, r *run, state models.DocumentStatus, reason string) {
	r.doc.Status = state
	o.mu.Lock()
	o.status[r.doc.ID] = Status{State: state, Reason: reason, UpdatedAt: o.now()}
	o.mu.Unlock()

	if o.persister != nil {
		if err := o.persister.UpdateStatus(ctx, r.doc.ID, state, reason); err != nil {
			o.logger.Warn("failed to persist status", "document", r.doc.ID, "state", state, "err", err)
		}
	}
}

func (o *Orchestrator) advance(ctx context.Context, r *run, state models.DocumentStatus) {
	o.setStatus(ctx, r, state, "")
	o.logger.Debug("state transition", "document", r.doc.ID, "state", state)
}

// fail moves the document to Failed and builds the error returned to the caller
func (o *Orchestrator) fail(r *run, started time.Time, reason string, err error) error {
	stage := r.doc.Status
	// ctx may already be done; status is still written through
	o.setStatus(context.Background(), r, models.StatusFailed, reason)
	o.observer.DocumentFinished(models.StatusFailed, o.now().Sub(started))
	o.logger.Error("pipeline failed", "document", r.doc.ID, "stage", stage, "reason", reason, "err", err)
	return &PipelineFailedError{DocumentID: r.doc.ID, Stage: stage, Reason: reason, Err: err}
}
