// ABOUTME: Prometheus metrics for pipeline runs
// ABOUTME: Pipeline implements core.Observer and registers on a caller-supplied registerer
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/harper/redliner/internal/core"
	"github.com/harper/redliner/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "redliner"

// Pipeline counts documents, clauses, redlines and retries
type Pipeline struct {
	documents *prometheus.CounterVec
	clauses   *prometheus.CounterVec
	redlines  *prometheus.CounterVec
	retries   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

var _ core.Observer = (*Pipeline)(nil)

// NewPipeline creates the collectors and registers them on reg
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	p := &Pipeline{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents that reached a terminal state.",
		}, []string{"state"}),
		clauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clauses_total",
			Help:      "Clauses processed, by outcome.",
		}, []string{"outcome", "unclassified"}),
		redlines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redlines_total",
			Help:      "Redline suggestions produced, by source.",
		}, []string{"source"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Collaborator calls retried after a transient failure.",
		}, []string{"collaborator"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Wall time of a pipeline run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"state"}),
	}

	for _, c := range []prometheus.Collector{p.documents, p.clauses, p.redlines, p.retries, p.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pipeline) DocumentFinished(state models.DocumentStatus, elapsed time.Duration) {
	p.documents.WithLabelValues(string(state)).Inc()
	p.duration.WithLabelValues(string(state)).Observe(elapsed.Seconds())
}

func (p *Pipeline) ClauseFinished(outcome models.ClauseOutcome, unclassified bool) {
	p.clauses.WithLabelValues(string(outcome), strconv.FormatBool(unclassified)).Inc()
}

func (p *Pipeline) Redline(source models.RedlineSource) {
	p.redlines.WithLabelValues(string(source)).Inc()
}

func (p *Pipeline) Retry(collaborator string) {
	p.retries.WithLabelValues(collaborator).Inc()
}

// Handler serves the metrics gathered by g in the text exposition format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
