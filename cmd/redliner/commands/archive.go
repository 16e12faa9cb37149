// ABOUTME: Archive commands for the Charm-synced report archive
// ABOUTME: Provides status, now, list and get against the configured charm KV
package commands

import (
	"fmt"

	"github.com/harper/redliner/internal/charm"
	"github.com/harper/redliner/internal/config"
	"github.com/spf13/cobra"
)

// openCharm connects to the configured charm KV. Tests replace it.
var openCharm = func() (*charm.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return charm.NewClient(&charm.Config{Host: cfg.CharmHost, DBName: cfg.CharmDBName, AutoSync: cfg.AutoSync})
}

// NewArchiveCmd creates the archive command group
func NewArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage the Charm report archive",
		Long: `Manage the report archive.

With REDLINER_ARCHIVE=true every finished report is also stored in a
Charm KV database, authenticated with your SSH keys, so reports follow
you across machines linked to the same Charm account.`,
	}

	cmd.AddCommand(newArchiveStatusCmd())
	cmd.AddCommand(newArchiveNowCmd())
	cmd.AddCommand(newArchiveListCmd())
	cmd.AddCommand(newArchiveGetCmd())

	return cmd
}

func newArchiveStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show archive connection info",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openCharm()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			id, err := client.ID()
			if err != nil {
				fmt.Fprintln(out, "Status: Not connected")
				return nil
			}
			fmt.Fprintln(out, "Status: Connected")
			fmt.Fprintf(out, "User ID: %s\n", id)
			if err := client.SyncErr(); err != nil {
				fmt.Fprintf(out, "Last sync failed: %v\n", err)
			}
			return nil
		},
	}
}

func newArchiveNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openCharm()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}
			defer client.Close()

			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			}
			return nil
		},
	}
}

func newArchiveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived report document ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openCharm()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}
			defer client.Close()

			ids, err := charm.NewArchive(client).List()
			if err != nil {
				return fmt.Errorf("listing archive: %w", err)
			}
			if wantJSON() {
				return printJSON(cmd.OutOrStdout(), ids)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newArchiveGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-id>",
		Short: "Show an archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openCharm()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}
			defer client.Close()

			report, err := charm.NewArchive(client).Get(args[0])
			if err != nil {
				return err
			}
			if wantJSON() {
				return printJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}
