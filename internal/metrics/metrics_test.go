// ABOUTME: Tests for pipeline metrics
// ABOUTME: Asserts counter values with prometheus testutil
package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harper/redliner/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipeline_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPipeline(reg)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	p.DocumentFinished(models.StatusComplete, 2*time.Second)
	p.DocumentFinished(models.StatusComplete, time.Second)
	p.DocumentFinished(models.StatusFailed, time.Second)
	p.ClauseFinished(models.OutcomeScored, false)
	p.ClauseFinished(models.OutcomeScored, true)
	p.ClauseFinished(models.OutcomeSkipped, false)
	p.Redline(models.RedlineFromModel)
	p.Redline(models.RedlineFromPrecedent)
	p.Redline(models.RedlineFromPrecedent)
	p.Retry("embedder")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"complete documents", testutil.ToFloat64(p.documents.WithLabelValues("COMPLETE")), 2},
		{"failed documents", testutil.ToFloat64(p.documents.WithLabelValues("FAILED")), 1},
		{"scored classified", testutil.ToFloat64(p.clauses.WithLabelValues("scored", "false")), 1},
		{"scored unclassified", testutil.ToFloat64(p.clauses.WithLabelValues("scored", "true")), 1},
		{"skipped", testutil.ToFloat64(p.clauses.WithLabelValues("skipped", "false")), 1},
		{"model redlines", testutil.ToFloat64(p.redlines.WithLabelValues("model")), 1},
		{"fallback redlines", testutil.ToFloat64(p.redlines.WithLabelValues("precedent_fallback")), 2},
		{"embedder retries", testutil.ToFloat64(p.retries.WithLabelValues("embedder")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(p.duration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestNewPipeline_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPipeline(reg); err != nil {
		t.Fatal(err)
	}
	if _, err := NewPipeline(reg); err == nil {
		t.Error("registering twice on one registry should fail")
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPipeline(reg)
	if err != nil {
		t.Fatal(err)
	}
	p.Retry("drafter")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `redliner_retries_total{collaborator="drafter"} 1`) {
		t.Errorf("metrics output missing retry counter:\n%s", rec.Body.String())
	}
}
