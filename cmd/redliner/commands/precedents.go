// ABOUTME: Precedent corpus commands
// ABOUTME: Imports YAML corpora into the vector backend and lists stored precedents
package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/harper/redliner/internal/models"
	"github.com/spf13/cobra"
)

// NewPrecedentsCmd creates the precedents command group
func NewPrecedentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "precedents",
		Short: "Manage the precedent corpus",
		Long: `Manage the precedent corpus that clauses are scored against.

A corpus file is YAML:

  precedents:
    - id: term-convenience
      category: Termination
      text: Either party may terminate for convenience on 30 days notice.
      baseline_risk: 0.8`,
	}

	cmd.AddCommand(newPrecedentsImportCmd())
	cmd.AddCommand(newPrecedentsListCmd())

	return cmd
}

func newPrecedentsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Embed and store precedents from a corpus file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.ImportPrecedents(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("importing precedents: %w", err)
			}
			if wantJSON() {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d precedent(s)\n", res.Imported)
			if len(res.Failed) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Failed: %s\n", strings.Join(res.Failed, ", "))
			}
			return nil
		},
	}
}

func newPrecedentsListCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored precedents",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cat models.Category
			if category != "" {
				c, ok := models.ParseCategory(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				cat = c
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.Precedents(cmd.Context(), cat)
			if err != nil {
				return fmt.Errorf("listing precedents: %w", err)
			}
			if wantJSON() {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				if !quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "No precedents found\n")
				}
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tCATEGORY\tRISK\tTEXT\n")
			fmt.Fprintf(w, "--\t--------\t----\t----\n")
			for _, p := range entries {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", p.ID, p.Category, p.BaselineRisk, truncate(p.Text, 60))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list this category")

	return cmd
}
