// ABOUTME: Clause labeling strategies behind one Labeler interface
// ABOUTME: Rule-based keyword matcher, model-based classifier, and a confidence-gated cascade
package core

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/harper/redliner/internal/models"
)

// Label sources
const (
	SourceRule  = "rule"
	SourceModel = "model"
)

// Label is a category assignment with confidence
type Label struct {
	Category   models.Category
	Confidence float64
	Source     string
	// Fallback is set when a preferred strategy failed and this result was kept instead
	Fallback error
}

// Labeler assigns a category to one clause text. Unknown text yields Unclassified, not an error.
type Labeler interface {
	Label(ctx context.Context, text string) (Label, error)
}

// Classifier is the model collaborator used by ModelLabeler
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (label string, confidence float64, err error)
}

func unclassified(source string) Label {
	return Label{Category: models.CategoryUnclassified, Confidence: 0.0, Source: source}
}

type keywordRule struct {
	pattern  *regexp.Regexp
	category models.Category
}

// Checked in order; earlier rules win ties
var keywordRules = []keywordRule{
	{regexp.MustCompile(`\bauto[- ]?renew(?:s|al|ed)?\b|\bautomatic(?:ally)? renew(?:s|al)?\b|\brenewal term\b`), models.CategoryRenewal},
	{regexp.MustCompile(`\bindemnif(?:y|ies|ied|ication)\b|\bhold harmless\b`), models.CategoryIndemnity},
	{regexp.MustCompile(`\bconfidential(?:ity)?\b|\bnon[- ]?disclosure\b|\bnda\b`), models.CategoryConfidentiality},
	{regexp.MustCompile(`\bterminat(?:e|es|ed|ion)\b|\bterm ends\b`), models.CategoryTermination},
	{regexp.MustCompile(`\buptime\b|\bavailability\b|\bservice levels?\b|\bsla\b|\bservice credits?\b`), models.CategoryUptime},
	{regexp.MustCompile(`\bliability cap\b|\blimitation of liability\b|\bcap on damages\b|\baggregate liability\b`), models.CategoryLiabilityCap},
	{regexp.MustCompile(`\bgoverning law\b|\bjurisdiction\b|\bvenue\b|\bgoverned by\b`), models.CategoryGoverningLaw},
	{regexp.MustCompile(`\bpersonal data\b|\bcustomer data\b|\bdata (?:use|processing|protection)\b|\bprocess(?:es|ing)? data\b|\bgdpr\b|\bprivacy\b`), models.CategoryDataUse},
	{regexp.MustCompile(`\bintellectual property\b|\bcopyrights?\b|\bpatents?\b|\btrademarks?\b|\blicen[cs]e grant\b`), models.CategoryIP},
	{regexp.MustCompile(`\bpayments?\b|\bfees?\b|\bcharges?\b|\binvoices?\b`), models.CategoryFees},
	{regexp.MustCompile(`\bmaintenance\b|\brepairs?\b|\bhvac\b|\bair conditioning\b`), models.CategoryMaintenance},
	{regexp.MustCompile(`\bsublet\b|\bsublease\b|\bassignment\b`), models.CategorySubletting},
	{regexp.MustCompile(`\brent (?:increase|escalat)|\bescalation\b|\bannual increase\b`), models.CategoryRentEscalation},
}

// rule confidence for an unambiguous hit
const ruleHitConfidence = 0.85

// RuleLabeler is the deterministic keyword baseline
type RuleLabeler struct{}

// NewRuleLabeler creates a RuleLabeler
func NewRuleLabeler() *RuleLabeler {
	return &RuleLabeler{}
}

// Label counts keyword hits per category. A single matching category gets 0.85;
// competing categories scale that by the winner's share of hits, floored at 0.3.
func (r *RuleLabeler) Label(_ context.Context, text string) (Label, error) {
	t := strings.ToLower(text)

	best := -1
	bestHits, total := 0, 0
	for i, rule := range keywordRules {
		hits := len(rule.pattern.FindAllStringIndex(t, -1))
		if hits == 0 {
			continue
		}
		total += hits
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	if best < 0 {
		return unclassified(SourceRule), nil
	}

	conf := ruleHitConfidence * float64(bestHits) / float64(total)
	if conf < 0.3 {
		conf = 0.3
	}
	return Label{Category: keywordRules[best].category, Confidence: conf, Source: SourceRule}, nil
}

// maxClassifyChars bounds the text sent to the classifier
const maxClassifyChars = 3000

// ModelLabeler delegates to a Classifier and maps its answer onto the closed set
type ModelLabeler struct {
	classifier Classifier
	labels     []string
}

// NewModelLabeler creates a ModelLabeler over the known categories
func NewModelLabeler(c Classifier) *ModelLabeler {
	labels := make([]string, 0, len(models.Categories))
	for _, cat := range models.Categories {
		labels = append(labels, string(cat))
	}
	return &ModelLabeler{classifier: c, labels: labels}
}

// Label classifies text. Labels outside the closed set become Unclassified with 0.0.
func (m *ModelLabeler) Label(ctx context.Context, text string) (Label, error) {
	label, conf, err := m.classifier.Classify(ctx, truncateRunes(text, maxClassifyChars), m.labels)
	if err != nil {
		return Label{}, fmt.Errorf("model labeling failed: %w", err)
	}

	cat, ok := models.ParseCategory(label)
	if !ok || cat == models.CategoryUnclassified {
		return unclassified(SourceModel), nil
	}
	if math.IsNaN(conf) {
		conf = 0
	}
	return Label{Category: cat, Confidence: math.Max(0, math.Min(1, conf)), Source: SourceModel}, nil
}

// CascadeLabeler uses the rule result unless its confidence is below threshold,
// then consults the model and keeps whichever answer is more confident.
type CascadeLabeler struct {
	rule      Labeler
	model     Labeler
	threshold float64
}

// NewCascadeLabeler combines a baseline and a model labeler. model may be nil.
func NewCascadeLabeler(rule, model Labeler, threshold float64) *CascadeLabeler {
	return &CascadeLabeler{rule: rule, model: model, threshold: threshold}
}

// Label never fails when the baseline succeeds. A model failure is reported through Label.Fallback.
func (c *CascadeLabeler) Label(ctx context.Context, text string) (Label, error) {
	base, err := c.rule.Label(ctx, text)
	if err != nil {
		return Label{}, err
	}
	if c.model == nil || base.Confidence >= c.threshold {
		return base, nil
	}

	alt, err := c.model.Label(ctx, text)
	if err != nil {
		base.Fallback = err
		return base, nil
	}
	if alt.Confidence > base.Confidence {
		return alt, nil
	}
	return base, nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
