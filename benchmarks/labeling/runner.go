// ABOUTME: Runner for the labeling benchmark
// ABOUTME: Labels every fixture case with a core.Labeler and exports the scored results as JSON
package labeling

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/harper/redliner/internal/core"
)

// Result is the outcome of one benchmark run
type Result struct {
	Labeler    string          `json:"labeler"`
	Timestamp  string          `json:"timestamp"`
	Total      int             `json:"total"`
	Correct    int             `json:"correct"`
	Accuracy   float64         `json:"accuracy"`
	Categories []CategoryScore `json:"categories"`
	Misses     []Prediction    `json:"misses,omitempty"`
}

// Runner labels benchmark cases
type Runner struct {
	name    string
	labeler core.Labeler
	verbose bool
}

// NewRunner creates a runner for labeler; name is recorded in the results
func NewRunner(name string, labeler core.Labeler, verbose bool) *Runner {
	return &Runner{name: name, labeler: labeler, verbose: verbose}
}

// Run labels every case and scores the predictions. A labeler error aborts the run.
func (r *Runner) Run(ctx context.Context, cases []Case) (Result, error) {
	preds := make([]Prediction, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		label, err := r.labeler.Label(ctx, c.Text)
		if err != nil {
			return Result{}, fmt.Errorf("case %s: %w", c.ID, err)
		}
		p := Prediction{Case: c, Got: label.Category, Confidence: label.Confidence, Source: label.Source}
		if r.verbose {
			mark := "ok  "
			if !p.Correct() {
				mark = "MISS"
			}
			fmt.Printf("[%s] %-18s want=%-22s got=%s (%.2f %s)\n", mark, c.ID, c.Want, p.Got, p.Confidence, p.Source)
		}
		preds = append(preds, p)
	}

	res := Score(preds)
	res.Labeler = r.name
	res.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return res, nil
}

// ExportResults writes results to outputPath as indented JSON
func ExportResults(res Result, outputPath string) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
