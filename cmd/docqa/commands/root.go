// Package commands implements the docqa command line.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds the docqa command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "docqa",
		Short: "Ask questions about PDF, DOCX and text documents",
		Long: `docqa ingests documents from a URL or a local path, indexes overlapping
chunks of their text and answers questions grounded in the most similar chunks.

Examples:
  docqa run https://example.com/policy.pdf -q "What is the grace period?"
  docqa ingest ./handbook.docx
  docqa ask --doc 5d41402abc4b2a76b9719d911017c592 "Is parental leave paid?"
  docqa chat ./policy.pdf`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env for API keys
			_ = godotenv.Load()
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file (default ./config.yaml or ~/.config/docqa/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newIngestCmd(opts),
		newAskCmd(opts),
		newRunCmd(opts),
		newChatCmd(opts),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
