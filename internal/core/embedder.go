// ABOUTME: Embedding generator with per-run content-hash memoization
// ABOUTME: Splits long text into chunks and averages their vectors weighted by chunk length
package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/harper/redliner/internal/util"
)

// ErrDimensionMismatch marks a vector whose length differs from the index dimension
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder is the embedding model collaborator
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type cacheEntry struct {
	done chan struct{}
	vec  []float64
	err  error
}

// EmbeddingGenerator owns chunking, caching and retries around an Embedder.
// Create one per pipeline run; the cache is not shared between runs.
type EmbeddingGenerator struct {
	embedder Embedder
	maxChars int
	dim      int
	retry    util.Policy
	observer Observer
	logger   *log.Logger

	mu    sync.Mutex
	cache map[string]*cacheEntry
	calls int
}

// NewEmbeddingGenerator creates a generator with an empty cache
func NewEmbeddingGenerator(e Embedder, cfg Config, observer Observer, logger *log.Logger) *EmbeddingGenerator {
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EmbeddingGenerator{
		embedder: e,
		maxChars: cfg.MaxEmbedChars,
		dim:      cfg.Dimension,
		retry:    cfg.Retry,
		observer: observer,
		logger:   logger.WithPrefix("embedder"),
		cache:    make(map[string]*cacheEntry),
	}
}

// ContentHash is the memoization key for a text
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Generate returns the vector for text. Identical texts share one computation, including its failure.
func (g *EmbeddingGenerator) Generate(ctx context.Context, text string) ([]float64, error) {
	key := ContentHash(text)

	g.mu.Lock()
	if entry, ok := g.cache[key]; ok {
		g.mu.Unlock()
		select {
		case <-entry.done:
			return entry.vec, entry.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	entry := &cacheEntry{done: make(chan struct{})}
	g.cache[key] = entry
	g.mu.Unlock()

	entry.vec, entry.err = g.compute(ctx, text)
	close(entry.done)
	return entry.vec, entry.err
}

// Calls returns how many times the collaborator was invoked, counting retries
func (g *EmbeddingGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *EmbeddingGenerator) compute(ctx context.Context, text string) ([]float64, error) {
	chunks := chunkText(text, g.maxChars)

	var sum []float64
	totalWeight := 0.0
	for _, chunk := range chunks {
		vec, err := g.embedOne(ctx, chunk)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		w := float64(utf8.RuneCountInString(chunk))
		for i, v := range vec {
			sum[i] += w * v
		}
		totalWeight += w
	}
	if totalWeight == 0 {
		return nil, &EmbeddingUnavailableError{Attempts: 0, Err: errors.New("no text to embed")}
	}
	for i := range sum {
		sum[i] /= totalWeight
	}
	return sum, nil
}

func (g *EmbeddingGenerator) embedOne(ctx context.Context, chunk string) ([]float64, error) {
	var vec []float64
	attempts, err := util.Do(ctx, g.retry, func(ctx context.Context, attempt int) error {
		g.mu.Lock()
		g.calls++
		g.mu.Unlock()
		if attempt > 1 {
			g.observer.Retry("embedder")
			g.logger.Debug("retrying embedding", "attempt", attempt)
		}

		v, err := g.embedder.Embed(ctx, chunk)
		if err != nil {
			return err
		}
		if g.dim > 0 && len(v) != g.dim {
			return util.Permanent(fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, g.dim, len(v)))
		}
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return util.Permanent(errors.New("embedding contains non-finite values"))
			}
		}
		vec = v
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("embedding unavailable", "attempts", attempts, "err", err)
		return nil, &EmbeddingUnavailableError{Attempts: attempts, Err: err}
	}
	return vec, nil
}

// chunkText splits text into pieces of at most max runes, preferring whitespace breaks
func chunkText(text string, max int) []string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); {
		end := start + max
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		for i := end; i > start+max/2; i-- {
			if unicode.IsSpace(runes[i-1]) {
				end = i
				break
			}
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end
	}
	return chunks
}
