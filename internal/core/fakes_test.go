// ABOUTME: Test doubles for the pipeline collaborators
// ABOUTME: Scripted embedder, searcher, drafter and classifier with call counting
package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/harper/redliner/internal/models"
	"github.com/harper/redliner/internal/util"
)

const testDim = 4

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Dimension = testDim
	cfg.Retry = util.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	return cfg
}

// keywordEmbedder maps text to a one-hot vector by keyword
type keywordEmbedder struct {
	mu     sync.Mutex
	calls  map[string]int
	failOn string // texts containing this substring always fail
	onCall func(text string)
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{calls: make(map[string]int)}
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.mu.Lock()
	e.calls[text]++
	e.mu.Unlock()
	if e.onCall != nil {
		e.onCall(text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lower := strings.ToLower(text)
	if e.failOn != "" && strings.Contains(lower, e.failOn) {
		return nil, errors.New("embedding service unreachable")
	}
	switch {
	case strings.Contains(lower, "terminat"):
		return []float64{1, 0, 0, 0}, nil
	case strings.Contains(lower, "fee"):
		return []float64{0, 1, 0, 0}, nil
	default:
		return []float64{0, 0, 1, 0}, nil
	}
}

func (e *keywordEmbedder) totalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		n += c
	}
	return n
}

// scriptedSearcher returns matches chosen by the dominant axis of the query vector
type scriptedSearcher struct {
	mu      sync.Mutex
	byAxis  map[int][]models.Match
	err     error
	calls   int
	filters []Filter
}

func (s *scriptedSearcher) KNN(ctx context.Context, vec []float64, filter Filter, k int) ([]models.Match, error) {
	s.mu.Lock()
	s.calls++
	s.filters = append(s.filters, filter)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	axis := 0
	for i, v := range vec {
		if v > vec[axis] {
			axis = i
		}
	}
	return append([]models.Match(nil), s.byAxis[axis]...), nil
}

// corpusSearcher does brute-force cosine search over entries
type corpusSearcher struct {
	entries []models.PrecedentEntry
}

func (s *corpusSearcher) KNN(ctx context.Context, vec []float64, filter Filter, k int) ([]models.Match, error) {
	var out []models.Match
	for _, e := range s.entries {
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		out = append(out, models.Match{Precedent: e, Similarity: CosineSimilarity(vec, e.Embedding)})
	}
	return out, nil
}

// scriptedDrafter replays responses in order; the last one repeats
type scriptedDrafter struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (d *scriptedDrafter) Draft(ctx context.Context, prompt string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts = append(d.prompts, prompt)
	if d.err != nil {
		return "", d.err
	}
	if len(d.responses) == 0 {
		return "", nil
	}
	out := d.responses[0]
	if len(d.responses) > 1 {
		d.responses = d.responses[1:]
	}
	return out, nil
}

type fakeClassifier struct {
	label string
	conf  float64
	err   error
	calls int
	text  string
}

func (c *fakeClassifier) Classify(ctx context.Context, text string, labels []string) (string, float64, error) {
	c.calls++
	c.text = text
	return c.label, c.conf, c.err
}

type staticLabeler struct {
	label Label
	err   error
}

func (s staticLabeler) Label(ctx context.Context, text string) (Label, error) {
	return s.label, s.err
}

func match(id string, cat models.Category, sim, risk float64) models.Match {
	return models.Match{
		Precedent:  models.PrecedentEntry{ID: id, Category: cat, Text: "precedent " + id, BaselineRisk: risk},
		Similarity: sim,
	}
}
