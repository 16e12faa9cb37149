// ABOUTME: Application wiring shared by the CLI and the MCP server
// ABOUTME: Builds model clients, storage, the orchestrator, archive and metrics from config
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/harper/redliner/internal/charm"
	"github.com/harper/redliner/internal/config"
	"github.com/harper/redliner/internal/core"
	"github.com/harper/redliner/internal/extract"
	"github.com/harper/redliner/internal/llm"
	"github.com/harper/redliner/internal/metrics"
	"github.com/harper/redliner/internal/models"
	"github.com/harper/redliner/internal/precedent"
	"github.com/harper/redliner/internal/storage/pgvector"
	"github.com/harper/redliner/internal/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sashabaranov/go-openai"
)

// ErrNoReport is returned when neither the store nor the archive has a report
var ErrNoReport = errors.New("no report for document")

// Backend is a precedent store that can also answer similarity queries
type Backend interface {
	precedent.Backend
	core.VectorSearcher
}

// Components are the collaborators an App is assembled from
type Components struct {
	Store      *sqlite.Store
	Backend    Backend
	Embedder   core.Embedder
	Classifier core.Classifier // nil disables model labeling
	Drafter    core.Drafter    // nil keeps redlines on the precedent fallback
	Archive    *charm.Archive  // nil disables archiving
	Registry   *prometheus.Registry
	Closers    []func() error
}

// App is one configured redliner instance
type App struct {
	cfg          *config.Config
	store        *sqlite.Store
	backend      Backend
	embedder     core.Embedder
	archive      *charm.Archive
	registry     *prometheus.Registry
	orchestrator *core.Orchestrator
	logger       *log.Logger
	closers      []func() error
}

// New builds an App from cfg, opening every configured backend
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	c := Components{Registry: prometheus.NewRegistry()}

	if err := attachModels(cfg, &c); err != nil {
		return nil, err
	}

	var err error
	if cfg.DBPath != "" {
		c.Store, err = sqlite.NewStoreWithPath(cfg.DBPath)
	} else {
		c.Store, err = sqlite.NewStore()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Closers = append(c.Closers, c.Store.Close)

	switch cfg.VectorBackend {
	case config.BackendPgvector:
		idx, err := pgvector.Open(ctx, cfg.PostgresDSN, cfg.VectorDimension)
		if err != nil {
			closeAll(c.Closers)
			return nil, fmt.Errorf("failed to open pgvector index: %w", err)
		}
		c.Backend = idx
		c.Closers = append(c.Closers, func() error { idx.Close(); return nil })
	default:
		c.Backend = c.Store.Precedents()
	}

	if cfg.ArchiveReports {
		client, err := charm.NewClient(&charm.Config{Host: cfg.CharmHost, DBName: cfg.CharmDBName, AutoSync: cfg.AutoSync})
		if err != nil {
			logger.Warn("report archive unavailable", "err", err)
		} else {
			c.Archive = charm.NewArchive(client)
			c.Closers = append(c.Closers, client.Close)
		}
	}

	a, err := NewWithComponents(cfg, c, logger)
	if err != nil {
		closeAll(c.Closers)
		return nil, err
	}
	return a, nil
}

// ModelClient is a provider client serving every model role
type ModelClient interface {
	core.Embedder
	core.Classifier
	core.Drafter
}

// NewModelClient creates the client for the configured provider
func NewModelClient(cfg *config.Config) (ModelClient, error) {
	if cfg.Provider == config.ProviderOllama {
		client, err := llm.NewOllamaClient(cfg.OllamaHost, cfg.ChatModel, cfg.EmbeddingModel, cfg.Timeout, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
		}
		return client, nil
	}
	client, err := llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
		APIKey:         cfg.OpenAIKey,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		Timeout:        cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}
	return client, nil
}

// attachModels assigns the provider client to every model role
func attachModels(cfg *config.Config, c *Components) error {
	client, err := NewModelClient(cfg)
	if err != nil {
		return err
	}
	c.Embedder, c.Drafter = client, client
	if cfg.UseModelLabels {
		c.Classifier = client
	}
	return nil
}

// NewWithComponents assembles an App from already-built collaborators
func NewWithComponents(cfg *config.Config, c Components, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	if c.Store == nil {
		return nil, errors.New("store is required")
	}
	if c.Backend == nil {
		c.Backend = c.Store.Precedents()
	}
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}

	observer, err := metrics.NewPipeline(c.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	pcfg := cfg.PipelineConfig()

	var labeler core.Labeler = core.NewRuleLabeler()
	if c.Classifier != nil {
		labeler = core.NewCascadeLabeler(labeler, core.NewModelLabeler(c.Classifier), pcfg.ModelLabelThreshold)
	}

	orch, err := core.NewOrchestrator(pcfg, core.Deps{
		Labeler:  labeler,
		Embedder: c.Embedder,
		Searcher: c.Backend,
		Drafter:  c.Drafter,
	},
		core.WithPersister(c.Store),
		core.WithObserver(observer),
		core.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:          cfg,
		store:        c.Store,
		backend:      c.Backend,
		embedder:     c.Embedder,
		archive:      c.Archive,
		registry:     c.Registry,
		orchestrator: orch,
		logger:       logger,
		closers:      c.Closers,
	}, nil
}

// Close releases every opened backend
func (a *App) Close() error {
	return closeAll(a.closers)
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the configuration the App was built from
func (a *App) Config() *config.Config { return a.cfg }

// Store returns the relational store
func (a *App) Store() *sqlite.Store { return a.store }

// Registry returns the metrics registry
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Analysis is the outcome of analyzing one document
type Analysis struct {
	Report *models.DocumentReport `json:"report"`
	// Cached is set when an identical file was already analyzed and its report reused
	Cached bool `json:"cached"`
}

// AnalyzeFile extracts path and analyzes it
func (a *App) AnalyzeFile(ctx context.Context, path string) (*Analysis, error) {
	doc, err := extract.Load(path)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, doc)
}

// AnalyzeText analyzes already-extracted text
func (a *App) AnalyzeText(ctx context.Context, name, text string) (*Analysis, error) {
	return a.Analyze(ctx, extract.FromText(name, text))
}

// Analyze runs doc through the pipeline. A completed document with the same
// content hash is not re-analyzed.
func (a *App) Analyze(ctx context.Context, doc *models.Document) (*Analysis, error) {
	if doc.SHA256 != "" {
		prev, err := a.store.DocumentBySHA(ctx, doc.SHA256)
		if err != nil {
			return nil, fmt.Errorf("duplicate lookup failed: %w", err)
		}
		if prev != nil && prev.Status == models.StatusComplete {
			report, err := a.store.GetReport(ctx, prev.ID)
			if err == nil {
				a.logger.Info("document already analyzed", "document", prev.ID, "sha256", doc.SHA256)
				return &Analysis{Report: report, Cached: true}, nil
			}
			a.logger.Warn("stored report missing, re-analyzing", "document", prev.ID, "err", err)
		}
	}

	report, err := a.orchestrator.RunPipeline(ctx, doc)
	if err != nil {
		return nil, err
	}
	if a.archive != nil {
		if err := a.archive.Put(report); err != nil {
			a.logger.Warn("failed to archive report", "document", report.DocumentID, "err", err)
		}
	}
	return &Analysis{Report: report}, nil
}

// Status returns the pipeline state of a document
func (a *App) Status(documentID string) (core.Status, bool) {
	return a.orchestrator.GetStatus(documentID)
}

// Report returns the stored report, falling back to the archive
func (a *App) Report(ctx context.Context, documentID string) (*models.DocumentReport, error) {
	report, err := a.store.GetReport(ctx, documentID)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, sqlite.ErrNotFound) {
		return nil, err
	}
	if a.archive != nil {
		if report, aerr := a.archive.Get(documentID); aerr == nil {
			return report, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", documentID, ErrNoReport)
}

// Risks lists stored assessments matching q
func (a *App) Risks(ctx context.Context, q sqlite.RiskQuery) ([]models.RiskAssessment, error) {
	return a.store.ListRisks(ctx, q)
}

// Documents lists recently ingested documents
func (a *App) Documents(ctx context.Context, limit int) ([]models.Document, error) {
	return a.store.ListDocuments(ctx, limit)
}

// ImportPrecedents loads a corpus file into the precedent backend
func (a *App) ImportPrecedents(ctx context.Context, path string) (precedent.Result, error) {
	entries, err := precedent.LoadFile(path)
	if err != nil {
		return precedent.Result{}, err
	}
	return precedent.NewImporter(a.backend, a.embedder, a.cfg.PipelineConfig(), a.logger).Import(ctx, entries)
}

// Precedents lists stored precedents, optionally for one category
func (a *App) Precedents(ctx context.Context, category models.Category) ([]models.PrecedentEntry, error) {
	return a.backend.List(ctx, category)
}
