// ABOUTME: Analyze command runs a contract through the risk pipeline
// ABOUTME: Accepts PDF, DOCX, TXT or MD files, or text on stdin with "-"
package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/harper/redliner/internal/app"
	"github.com/harper/redliner/internal/core"
	"github.com/spf13/cobra"
)

var analyzeName string

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a contract for risky clauses",
		Long: `Analyze a contract for risky clauses.

The document is split into clauses, each clause is labeled and compared
against the precedent corpus, and clauses scoring High or Critical get a
redline suggestion. A file identical to one already analyzed reuses the
stored report.

Examples:
  redliner analyze lease.pdf
  redliner analyze msa.docx --format json
  cat terms.txt | redliner analyze - --name terms.txt`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVar(&analyzeName, "name", "stdin", "Display name when reading from stdin")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var res *app.Analysis
	if args[0] == "-" {
		data, rerr := io.ReadAll(cmd.InOrStdin())
		if rerr != nil {
			return fmt.Errorf("reading stdin: %w", rerr)
		}
		res, err = a.AnalyzeText(cmd.Context(), analyzeName, string(data))
	} else {
		res, err = a.AnalyzeFile(cmd.Context(), args[0])
	}
	if err != nil {
		var pf *core.PipelineFailedError
		if errors.As(err, &pf) {
			return fmt.Errorf("document %s failed (%s): %w", pf.DocumentID, pf.Reason, err)
		}
		return err
	}

	if wantJSON() {
		return printJSON(cmd.OutOrStdout(), res)
	}
	if res.Cached && !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Already analyzed; showing stored report.\n")
	}
	printReport(cmd.OutOrStdout(), res.Report)
	return nil
}
