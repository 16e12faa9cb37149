// ABOUTME: Redline generator that drafts replacement text for high-risk clauses
// ABOUTME: Builds the drafting prompt, validates output and falls back to precedent text
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/harper/redliner/internal/models"
	"github.com/harper/redliner/internal/util"
)

// ManualReviewText is the suggestion used when no precedent exists to fall back on
const ManualReviewText = "No approved precedent language is available for this clause. Escalate for manual legal review before signing."

// Drafter is the language model collaborator
type Drafter interface {
	Draft(ctx context.Context, prompt string) (string, error)
}

var (
	errEmptyDraft   = errors.New("draft is empty")
	errDraftTooLong = errors.New("draft exceeds maximum length")
)

// RedlineGenerator proposes replacement language. It never fails a clause.
type RedlineGenerator struct {
	drafter  Drafter
	maxLen   int
	contextN int
	retry    util.Policy
	observer Observer
	logger   *log.Logger
}

// NewRedlineGenerator creates a generator. A nil drafter always uses the fallback.
func NewRedlineGenerator(d Drafter, cfg Config, observer Observer, logger *log.Logger) *RedlineGenerator {
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = log.Default()
	}
	contextN := cfg.RedlineContext
	if contextN < 1 {
		contextN = 1
	}
	return &RedlineGenerator{
		drafter:  d,
		maxLen:   cfg.RedlineMaxLength,
		contextN: contextN,
		retry:    cfg.Retry,
		observer: observer,
		logger:   logger.WithPrefix("redline"),
	}
}

// Generate drafts a suggestion for clause using its ordered matches. Problems that led
// to a fallback are returned as issues alongside the suggestion.
func (g *RedlineGenerator) Generate(ctx context.Context, clause *models.Clause, a *models.RiskAssessment, matches []models.Match) (models.RedlineSuggestion, []models.Issue) {
	var issues []models.Issue
	issue := func(kind models.IssueKind, err error) {
		issues = append(issues, models.Issue{
			ClauseID: clause.ID,
			Position: clause.Position,
			Stage:    "redline",
			Kind:     kind,
			Message:  err.Error(),
		})
	}

	contextMatches := matches
	if len(contextMatches) > g.contextN {
		contextMatches = contextMatches[:g.contextN]
	}

	if g.drafter == nil {
		issue(models.IssueDraftUnavailable, errors.New("no drafting model configured"))
		return g.fallback(clause, matches), issues
	}

	for _, strict := range []bool{false, true} {
		text, err := g.draft(ctx, BuildRedlinePrompt(clause, a, contextMatches, g.maxLen, strict))
		if err != nil {
			issue(models.IssueDraftUnavailable, err)
			break
		}
		cleaned, err := g.validate(text)
		if err != nil {
			issue(models.IssueDraftInvalid, err)
			continue
		}
		ids := make([]string, 0, len(contextMatches))
		for _, m := range contextMatches {
			ids = append(ids, m.Precedent.ID)
		}
		g.observer.Redline(models.RedlineFromModel)
		return models.RedlineSuggestion{
			ClauseID:           clause.ID,
			Position:           clause.Position,
			Text:               cleaned,
			SourcePrecedentIDs: ids,
			Source:             models.RedlineFromModel,
		}, issues
	}

	g.logger.Warn("using fallback redline", "clause", clause.Position, "issues", len(issues))
	return g.fallback(clause, matches), issues
}

func (g *RedlineGenerator) draft(ctx context.Context, prompt string) (string, error) {
	var out string
	attempts, err := util.Do(ctx, g.retry, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			g.observer.Retry("drafter")
		}
		text, err := g.drafter.Draft(ctx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", &DraftUnavailableError{Attempts: attempts, Err: err}
	}
	return out, nil
}

func (g *RedlineGenerator) validate(text string) (string, error) {
	cleaned := strings.TrimSpace(stripCodeFence(text))
	if cleaned == "" {
		return "", errEmptyDraft
	}
	if n := utf8.RuneCountInString(cleaned); n > g.maxLen {
		return "", fmt.Errorf("%w: %d > %d characters", errDraftTooLong, n, g.maxLen)
	}
	return cleaned, nil
}

// fallback returns the top precedent verbatim, or a manual review note when there is none
func (g *RedlineGenerator) fallback(clause *models.Clause, matches []models.Match) models.RedlineSuggestion {
	g.observer.Redline(models.RedlineFromPrecedent)
	s := models.RedlineSuggestion{
		ClauseID:           clause.ID,
		Position:           clause.Position,
		Text:               ManualReviewText,
		SourcePrecedentIDs: []string{},
		Source:             models.RedlineFromPrecedent,
	}
	if len(matches) > 0 {
		s.Text = matches[0].Precedent.Text
		s.SourcePrecedentIDs = []string{matches[0].Precedent.ID}
	}
	return s
}

// BuildRedlinePrompt constructs the drafting prompt. The first match is the primary precedent.
func BuildRedlinePrompt(clause *models.Clause, a *models.RiskAssessment, matches []models.Match, maxLen int, strict bool) string {
	var b strings.Builder
	b.WriteString("You are revising one clause of a commercial contract to reduce the risk it carries for our side.\n\n")
	fmt.Fprintf(&b, "Clause category: %s\n", clause.Category)
	if a != nil {
		fmt.Fprintf(&b, "Assessed risk: %.2f (%s)\n", a.Score, a.Severity)
		for _, f := range a.Findings {
			fmt.Fprintf(&b, "Concern: %s", f.Rationale)
			if f.SuggestedFix != "" {
				fmt.Fprintf(&b, " Suggested fix: %s", f.SuggestedFix)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\nOriginal clause:\n\"\"\"\n")
	b.WriteString(strings.TrimSpace(clause.Text()))
	b.WriteString("\n\"\"\"\n")

	if len(matches) > 0 {
		b.WriteString("\nPrimary approved precedent:\n\"\"\"\n")
		b.WriteString(strings.TrimSpace(matches[0].Precedent.Text))
		b.WriteString("\n\"\"\"\n")
		for i, m := range matches[1:] {
			fmt.Fprintf(&b, "\nAdditional precedent %d (similarity %.2f):\n\"\"\"\n%s\n\"\"\"\n", i+2, m.Similarity, strings.TrimSpace(m.Precedent.Text))
		}
	} else {
		b.WriteString("\nNo approved precedent is available; rely on standard protective drafting.\n")
	}

	b.WriteString("\nRewrite the original clause so it keeps its commercial purpose but moves our risk toward the approved precedent language.\n")
	fmt.Fprintf(&b, "Return only the replacement clause text, at most %d characters.\n", maxLen)
	if strict {
		b.WriteString("Your previous answer was rejected. Output plain clause text only: no preamble, no explanation, no markdown, not empty.\n")
	}
	return b.String()
}

func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		t = ""
	}
	return strings.TrimSuffix(strings.TrimSpace(t), "```")
}
