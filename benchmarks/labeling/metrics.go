// ABOUTME: Scoring for the labeling benchmark
// ABOUTME: Computes accuracy and per-category precision and recall from labeled predictions
package labeling

import (
	"sort"

	"github.com/harper/redliner/internal/models"
)

// Prediction is a labeler's answer for one case
type Prediction struct {
	Case       Case            `json:"case"`
	Got        models.Category `json:"got"`
	Confidence float64         `json:"confidence"`
	Source     string          `json:"source"`
}

// Correct reports whether the prediction matches the expected category
func (p Prediction) Correct() bool {
	return p.Got == p.Case.Want
}

// CategoryScore is precision and recall for one category
type CategoryScore struct {
	Category  models.Category `json:"category"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	// Support is the number of cases expecting this category
	Support int `json:"support"`
}

// Score aggregates predictions into a Result
func Score(preds []Prediction) Result {
	res := Result{Total: len(preds)}

	type counts struct{ tp, fp, fn int }
	per := map[models.Category]*counts{}
	get := func(c models.Category) *counts {
		if per[c] == nil {
			per[c] = &counts{}
		}
		return per[c]
	}

	for _, p := range preds {
		if p.Correct() {
			res.Correct++
			get(p.Got).tp++
			continue
		}
		get(p.Got).fp++
		get(p.Case.Want).fn++
		res.Misses = append(res.Misses, p)
	}
	if res.Total > 0 {
		res.Accuracy = float64(res.Correct) / float64(res.Total)
	}

	for cat, c := range per {
		s := CategoryScore{Category: cat, Support: c.tp + c.fn}
		if c.tp+c.fp > 0 {
			s.Precision = float64(c.tp) / float64(c.tp+c.fp)
		}
		if c.tp+c.fn > 0 {
			s.Recall = float64(c.tp) / float64(c.tp+c.fn)
		}
		res.Categories = append(res.Categories, s)
	}
	sort.Slice(res.Categories, func(i, j int) bool {
		return res.Categories[i].Category < res.Categories[j].Category
	})
	return res
}
