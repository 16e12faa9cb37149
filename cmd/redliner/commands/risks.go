// ABOUTME: Risks command lists stored clause assessments of a document
// ABOUTME: Filters by minimum severity and category, highest score first
package commands

import (
	"fmt"

	"github.com/harper/redliner/internal/models"
	"github.com/harper/redliner/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var (
	risksMinSeverity string
	risksCategory    string
	risksLimit       int
)

// NewRisksCmd creates the risks command
func NewRisksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risks <document-id>",
		Short: "List clause risks of a document",
		Long: `List clause risks of an analyzed document, highest score first.

Examples:
  redliner risks 3f2a... --min-severity high
  redliner risks 3f2a... --category "liability cap" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runRisks,
	}

	cmd.Flags().StringVar(&risksMinSeverity, "min-severity", "low", "Lowest severity to include (low, medium, high, critical)")
	cmd.Flags().StringVar(&risksCategory, "category", "", "Only include this clause category")
	cmd.Flags().IntVarP(&risksLimit, "limit", "n", 0, "Maximum number of risks (0 for all)")

	return cmd
}

// riskQuery validates the flags into a store query
func riskQuery(documentID string) (sqlite.RiskQuery, error) {
	q := sqlite.RiskQuery{DocumentID: documentID}
	sev, err := models.ParseSeverity(risksMinSeverity)
	if err != nil {
		return q, err
	}
	q.MinSeverity = sev
	if risksCategory != "" {
		cat, ok := models.ParseCategory(risksCategory)
		if !ok {
			return q, fmt.Errorf("unknown category %q", risksCategory)
		}
		q.Category = cat
	}
	if risksLimit < 0 {
		return q, fmt.Errorf("limit cannot be negative, got %d", risksLimit)
	}
	q.Limit = risksLimit
	return q, nil
}

func runRisks(cmd *cobra.Command, args []string) error {
	q, err := riskQuery(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	risks, err := a.Risks(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("listing risks: %w", err)
	}

	if wantJSON() {
		return printJSON(cmd.OutOrStdout(), risks)
	}
	if len(risks) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No risks found\n")
		}
		return nil
	}
	printRisks(cmd.OutOrStdout(), risks)
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d risk(s)\n", len(risks))
	}
	return nil
}
