// ABOUTME: Precedent corpus files and ingestion into a vector backend
// ABOUTME: Entries are read from YAML, embedded, validated and upserted
package precedent

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harper/redliner/internal/core"
	"github.com/harper/redliner/internal/models"
	"gopkg.in/yaml.v3"
)

// Backend stores precedents; both vector backends implement it
type Backend interface {
	Save(ctx context.Context, p *models.PrecedentEntry) error
	List(ctx context.Context, category models.Category) ([]models.PrecedentEntry, error)
}

// Corpus is the on-disk precedent file format
type Corpus struct {
	Precedents []models.PrecedentEntry `yaml:"precedents"`
}

// LoadFile reads a corpus from path
func LoadFile(path string) ([]models.PrecedentEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a corpus and normalizes category names. Unknown categories are rejected.
func Parse(r io.Reader) ([]models.PrecedentEntry, error) {
	var c Corpus
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}

	seen := make(map[string]bool, len(c.Precedents))
	for i := range c.Precedents {
		p := &c.Precedents[i]
		if p.ID == "" {
			return nil, fmt.Errorf("precedent %d: id is required", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("precedent %s: duplicate id", p.ID)
		}
		seen[p.ID] = true

		cat, ok := models.ParseCategory(string(p.Category))
		if !ok {
			return nil, fmt.Errorf("precedent %s: unknown category %q", p.ID, p.Category)
		}
		p.Category = cat
	}
	return c.Precedents, nil
}

// Result summarizes an import
type Result struct {
	Imported int      `json:"imported"`
	Failed   []string `json:"failed,omitempty"`
}

// Importer embeds corpus entries and writes them to a backend
type Importer struct {
	backend Backend
	embed   *core.EmbeddingGenerator
	dim     int
	logger  *log.Logger
}

// NewImporter creates an importer that embeds with e under cfg's retry and chunking policy
func NewImporter(backend Backend, e core.Embedder, cfg core.Config, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("precedents")
	return &Importer{
		backend: backend,
		embed:   core.NewEmbeddingGenerator(e, cfg, nil, logger),
		dim:     cfg.Dimension,
		logger:  logger,
	}
}

// Import embeds and saves every entry. An entry that fails to embed or validate
// is recorded in Result.Failed and the rest continue. A cancelled context stops the import.
func (im *Importer) Import(ctx context.Context, entries []models.PrecedentEntry) (Result, error) {
	var res Result
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p := entries[i]

		vec, err := im.embed.Generate(ctx, p.Text)
		if err != nil {
			im.logger.Warn("embedding failed", "precedent", p.ID, "err", err)
			res.Failed = append(res.Failed, p.ID)
			continue
		}
		p.Embedding = vec
		if err := p.Validate(im.dim); err != nil {
			im.logger.Warn("invalid precedent", "precedent", p.ID, "err", err)
			res.Failed = append(res.Failed, p.ID)
			continue
		}
		if err := im.backend.Save(ctx, &p); err != nil {
			return res, fmt.Errorf("failed to save precedent %s: %w", p.ID, err)
		}
		res.Imported++
		im.logger.Debug("imported precedent", "precedent", p.ID, "category", p.Category)
	}
	im.logger.Info("import finished", "imported", res.Imported, "failed", len(res.Failed))
	return res, nil
}
