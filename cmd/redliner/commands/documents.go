// ABOUTME: Documents command lists recently ingested contracts
// ABOUTME: Shows filename, state, ingest time and document id
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var documentsLimit int

// NewDocumentsCmd creates the documents command
func NewDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List analyzed documents",
		Long: `List recently ingested documents, newest first.

Examples:
  redliner documents
  redliner documents -n 50 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validatePositiveInt(documentsLimit, "limit"); err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.Documents(cmd.Context(), documentsLimit)
			if err != nil {
				return fmt.Errorf("listing documents: %w", err)
			}
			if wantJSON() {
				return printJSON(cmd.OutOrStdout(), docs)
			}
			if len(docs) == 0 {
				if !quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "No documents found\n")
				}
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "FILENAME\tSTATE\tINGESTED\tDOCUMENT ID\n")
			fmt.Fprintf(w, "--------\t-----\t--------\t-----------\n")
			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", truncate(d.Filename, 30), d.Status, formatTime(d.IngestedAt), d.ID)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().IntVarP(&documentsLimit, "limit", "n", 20, "Maximum number of documents")

	return cmd
}
