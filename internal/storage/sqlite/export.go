// ABOUTME: Export functionality for stored contract reports
// ABOUTME: Supports YAML, Markdown and JSON export formats
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/redliner/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the complete exportable report structure
type ExportData struct {
	Version     string            `yaml:"version" json:"version"`
	ExportedAt  string            `yaml:"exported_at" json:"exported_at"`
	Tool        string            `yaml:"tool" json:"tool"`
	DocumentID  string            `yaml:"document_id" json:"document_id"`
	Filename    string            `yaml:"filename,omitempty" json:"filename,omitempty"`
	GeneratedAt string            `yaml:"generated_at" json:"generated_at"`
	MaxSeverity string            `yaml:"max_severity,omitempty" json:"max_severity,omitempty"`
	Tiers       models.TierCounts `yaml:"tiers" json:"tiers"`
	Risks       []ExportRisk      `yaml:"risks" json:"risks"`
	Issues      []ExportIssue     `yaml:"issues,omitempty" json:"issues,omitempty"`
}

// ExportRisk represents one assessed clause for export
type ExportRisk struct {
	Position   int      `yaml:"position" json:"position"`
	Category   string   `yaml:"category" json:"category"`
	Score      float64  `yaml:"score" json:"score"`
	Severity   string   `yaml:"severity" json:"severity"`
	Rationale  string   `yaml:"rationale" json:"rationale"`
	Precedents []string `yaml:"precedents,omitempty" json:"precedents,omitempty"`
	Redline    string   `yaml:"redline,omitempty" json:"redline,omitempty"`
	Source     string   `yaml:"redline_source,omitempty" json:"redline_source,omitempty"`
}

// ExportIssue represents a recorded degradation for export
type ExportIssue struct {
	Position int    `yaml:"position" json:"position"`
	Stage    string `yaml:"stage" json:"stage"`
	Kind     string `yaml:"kind" json:"kind"`
	Message  string `yaml:"message" json:"message"`
}

// BuildExport flattens a report into its export form
func BuildExport(report *models.DocumentReport) *ExportData {
	data := &ExportData{
		Version:     "1.0",
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Tool:        "redliner",
		DocumentID:  report.DocumentID,
		Filename:    report.Filename,
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
		Tiers:       report.Summary.Tiers,
		Risks:       make([]ExportRisk, 0, len(report.Assessments)),
	}
	if report.Summary.MaxSeverity != nil {
		data.MaxSeverity = report.Summary.MaxSeverity.String()
	}

	redlines := make(map[string]models.RedlineSuggestion, len(report.Redlines))
	for _, r := range report.Redlines {
		redlines[r.ClauseID] = r
	}

	for _, a := range report.Assessments {
		risk := ExportRisk{
			Position:  a.Position,
			Category:  string(a.Category),
			Score:     a.Score,
			Severity:  a.Severity.String(),
			Rationale: a.Rationale,
		}
		for _, m := range a.Matches {
			risk.Precedents = append(risk.Precedents, m.PrecedentID)
		}
		if r, ok := redlines[a.ClauseID]; ok {
			risk.Redline = r.Text
			risk.Source = string(r.Source)
		}
		data.Risks = append(data.Risks, risk)
	}

	for _, is := range report.Issues {
		data.Issues = append(data.Issues, ExportIssue{
			Position: is.Position,
			Stage:    is.Stage,
			Kind:     string(is.Kind),
			Message:  is.Message,
		})
	}
	return data
}

// WriteYAML encodes the export as YAML
func WriteYAML(w io.Writer, data *ExportData) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// WriteJSON encodes the export as indented JSON
func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteMarkdown renders the export as a Markdown review memo
func WriteMarkdown(w io.Writer, data *ExportData) error {
	title := data.Filename
	if title == "" {
		title = data.DocumentID
	}
	_, _ = fmt.Fprintf(w, "# Contract Review - %s\n\n", title)
	_, _ = fmt.Fprintf(w, "Generated: %s\n\n", data.GeneratedAt)
	if data.MaxSeverity != "" {
		_, _ = fmt.Fprintf(w, "- **Highest severity:** %s\n", data.MaxSeverity)
	}
	_, _ = fmt.Fprintf(w, "- **Tiers:** %d critical, %d high, %d medium, %d low\n\n",
		data.Tiers.Critical, data.Tiers.High, data.Tiers.Medium, data.Tiers.Low)

	if len(data.Risks) > 0 {
		_, _ = fmt.Fprintln(w, "## Risks")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "| # | Category | Score | Severity |")
		_, _ = fmt.Fprintln(w, "|---|----------|-------|----------|")
		for _, r := range data.Risks {
			_, _ = fmt.Fprintf(w, "| %d | %s | %.2f | %s |\n", r.Position, r.Category, r.Score, r.Severity)
		}
		_, _ = fmt.Fprintln(w)
	}

	wroteHeader := false
	for _, r := range data.Risks {
		if r.Redline == "" {
			continue
		}
		if !wroteHeader {
			_, _ = fmt.Fprintln(w, "## Redlines")
			_, _ = fmt.Fprintln(w)
			wroteHeader = true
		}
		_, _ = fmt.Fprintf(w, "### Clause %d (%s, %s)\n\n", r.Position, r.Category, r.Severity)
		_, _ = fmt.Fprintf(w, "*%s*\n\n", r.Rationale)
		_, _ = fmt.Fprintf(w, "> %s\n\n", strings.ReplaceAll(r.Redline, "\n", "\n> "))
		if len(r.Precedents) > 0 {
			_, _ = fmt.Fprintf(w, "Precedents: %s\n\n", strings.Join(r.Precedents, ", "))
		}
	}

	if len(data.Issues) > 0 {
		_, _ = fmt.Fprintln(w, "## Issues")
		_, _ = fmt.Fprintln(w)
		for _, is := range data.Issues {
			_, _ = fmt.Fprintf(w, "- [%s/%s] clause %d: %s\n", is.Stage, is.Kind, is.Position, is.Message)
		}
	}
	return nil
}

// ExportReport writes the stored report of documentID to outputPath.
// The format follows the extension: .yaml/.yml, .md, otherwise JSON.
func (s *Store) ExportReport(ctx context.Context, documentID, outputPath string) error {
	report, err := s.GetReport(ctx, documentID)
	if err != nil {
		return err
	}
	data := BuildExport(report)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".yaml", ".yml":
		return WriteYAML(file, data)
	case ".md", ".markdown":
		return WriteMarkdown(file, data)
	default:
		return WriteJSON(file, data)
	}
}
