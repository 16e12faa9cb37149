// ABOUTME: Status command shows the pipeline state of a document
// ABOUTME: Prints the state and, for failed documents, the failure reason
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show the pipeline state of a document",
		Long: `Show the pipeline state of a document.

States: PENDING, SEGMENTED, LABELED, EMBEDDED, SCORED, COMPLETE, FAILED.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			st, ok := a.Status(args[0])
			if !ok {
				return fmt.Errorf("unknown document: %s", args[0])
			}
			if wantJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"document_id": args[0],
					"state":       st.State,
					"reason":      st.Reason,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], st.State)
			if st.Reason != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Reason: %s\n", st.Reason)
			}
			return nil
		},
	}
}
