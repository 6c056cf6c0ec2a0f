package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mistraltools/internal/config"
	"mistraltools/internal/logger"
	"mistraltools/internal/mistral"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "mistral-tools",
	Short: "Mistral Tools - OCR and requirement extraction with the Mistral AI API",
	Long: `Mistral Tools is a command-line interface for document processing with the
hosted Mistral AI API.

It converts PDF files to markdown with Mistral OCR and extracts structured
requirement records from text documents into CSV.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Mistral Tools CLI executed")

		fmt.Println("Welcome to Mistral Tools!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}

// newMistralClient loads configuration and builds the API client shared by all commands.
func newMistralClient() (*config.Config, *mistral.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, mistral.ErrMissingAPIKey) {
			return nil, nil, fmt.Errorf("%w. Export it or add it to your .env file:\n\n"+
				"   export MISTRALAI_API_KEY=your-api-key", mistral.ErrMissingAPIKey)
		}
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	client, err := mistral.NewClient(cfg.MistralConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Mistral client: %w", err)
	}
	return cfg, client, nil
}
