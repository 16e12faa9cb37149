// ABOUTME: Report command and shared report rendering
// ABOUTME: Prints a stored report as a table or JSON, or exports it to a file
package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/harper/redliner/internal/models"
	"github.com/spf13/cobra"
)

var reportExport string

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <document-id>",
		Short: "Show the risk report of an analyzed document",
		Long: `Show the risk report of a previously analyzed document.

Reports are read from the local database, then from the Charm archive
when archiving is enabled.

Examples:
  redliner report 3f2a...
  redliner report 3f2a... --format json
  redliner report 3f2a... --export review.md`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().StringVarP(&reportExport, "export", "o", "", "Write the report to a file (.md, .yaml, .json)")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if reportExport != "" {
		if err := a.Store().ExportReport(cmd.Context(), args[0], reportExport); err != nil {
			return fmt.Errorf("exporting report: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported report to %s\n", reportExport)
		}
		return nil
	}

	report, err := a.Report(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if wantJSON() {
		return printJSON(cmd.OutOrStdout(), report)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

// printReport renders the summary, the per-clause risks and any redlines
func printReport(out io.Writer, r *models.DocumentReport) {
	name := r.Filename
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(out, "Document: %s  (%s)\n", name, r.DocumentID)

	s := r.Summary
	maxSev := "none"
	if s.MaxSeverity != nil {
		maxSev = s.MaxSeverity.String()
	}
	fmt.Fprintf(out, "Max severity: %s   Critical %d  High %d  Medium %d  Low %d\n",
		maxSev, s.Tiers.Critical, s.Tiers.High, s.Tiers.Medium, s.Tiers.Low)
	fmt.Fprintf(out, "Clauses: %d  scored %d  skipped %d  unclassified %d  redlines %d\n\n",
		s.Clauses, s.Scored, s.Skipped, s.Unclassified, s.Redlines)

	if len(r.Assessments) > 0 {
		printRisks(out, r.Assessments)
	}

	if len(r.Redlines) > 0 {
		fmt.Fprintf(out, "\nRedlines:\n")
		for _, rl := range r.Redlines {
			fmt.Fprintf(out, "  [%d] (%s) %s\n", rl.Position, rl.Source, truncate(strings.TrimSpace(rl.Text), 200))
		}
	}

	if len(r.Issues) > 0 && !quiet {
		fmt.Fprintf(out, "\nIssues:\n")
		for _, is := range r.Issues {
			fmt.Fprintf(out, "  [%d] %s/%s: %s\n", is.Position, is.Stage, is.Kind, is.Message)
		}
	}
}

func printRisks(out io.Writer, risks []models.RiskAssessment) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tCATEGORY\tSCORE\tSEVERITY\tRATIONALE\n")
	fmt.Fprintf(w, "-\t--------\t-----\t--------\t---------\n")
	for _, a := range risks {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%s\n",
			a.Position,
			a.Category,
			a.Score,
			a.Severity,
			truncate(a.Rationale, 60))
	}
	w.Flush()
}
