// ABOUTME: Root command and global flags for the redliner CLI
// ABOUTME: Loads .env, sets log level from --verbose/--quiet, and registers subcommands
package commands

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
█▀█ █▀▀ █▀▄ █   █ █▄ █ █▀▀ █▀█
█▀▄ ██▄ █▄▀ █▄▄ █ █ ▀█ ██▄ █▀▄`

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redliner",
		Short: "Contract clause risk review",
		Long: banner + `

Redliner splits contracts into clauses, labels each clause, compares it
against a corpus of precedent language, and reports a risk score,
severity and redline suggestion per clause.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet cannot be used together")
			}
			switch outputFormat {
			case "auto", "table", "json":
			default:
				return fmt.Errorf("unknown --format %q (want auto, table or json)", outputFormat)
			}
			// .env is optional
			_ = godotenv.Load()

			switch {
			case verbose:
				log.SetLevel(log.DebugLevel)
			case quiet:
				log.SetLevel(log.ErrorLevel)
			default:
				log.SetLevel(log.InfoLevel)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table, json")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewRisksCmd())
	cmd.AddCommand(NewDocumentsCmd())
	cmd.AddCommand(NewPrecedentsCmd())
	cmd.AddCommand(NewArchiveCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
