package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"mistraltools/internal/logger"
	"mistraltools/internal/mistral"
	"mistraltools/internal/requirements"
)

var requirementsCmd = &cobra.Command{
	Use:     "requirements",
	Aliases: []string{"extract"},
	Short:   "Extract structured requirements from a text document into CSV",
	Long: `Read a UTF-8 text document, send it to a Mistral chat model with a fixed
extraction prompt and write the returned requirement records as CSV.

The model is asked for a JSON array of objects with "code", "description"
and "category". Code fences around the reply are tolerated. If the reply is
not a JSON array of objects the command fails and no CSV is written.

Defaults:
  input   data/requirements.md     (REQUIREMENTS_INPUT_FILE)
  output  output/requirements.csv  (REQUIREMENTS_OUTPUT_FILE)

Required environment variables:
  MISTRALAI_API_KEY - Your Mistral API key`,
	Example: `  # Extract with the default input and output paths
  mistral-tools requirements

  # Custom paths plus an Excel copy
  mistral-tools requirements -i spec.txt -o out/spec.csv --xlsx out/spec.xlsx

  # Keep the raw model reply for debugging
  mistral-tools requirements --raw out/reply.txt`,
	Args: cobra.NoArgs,
	RunE: runRequirements,
}

func init() {
	rootCmd.AddCommand(requirementsCmd)

	requirementsCmd.Flags().StringP("input", "i", "", "Input text file (default: REQUIREMENTS_INPUT_FILE or data/requirements.md)")
	requirementsCmd.Flags().StringP("output", "o", "", "Output CSV file (default: REQUIREMENTS_OUTPUT_FILE or output/requirements.csv)")
	requirementsCmd.Flags().String("xlsx", "", "Also write the requirements to this Excel workbook")
	requirementsCmd.Flags().String("raw", "", "Also write the raw model reply to this file")
	requirementsCmd.Flags().String("model", "", "Chat model (default: MISTRAL_CHAT_MODEL or mistral-large-latest)")
	requirementsCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runRequirements(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("requirements")

	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	rawPath, _ := cmd.Flags().GetString("raw")
	model, _ := cmd.Flags().GetString("model")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg, client, err := newMistralClient()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Mistral client")
		return err
	}
	if inputPath == "" {
		inputPath = cfg.RequirementsInputFile
	}
	if outputPath == "" {
		outputPath = cfg.RequirementsOutputFile
	}
	if model == "" {
		model = cfg.MistralChatModel
	}

	log.Info().
		Str("input", inputPath).
		Str("output", outputPath).
		Str("model", model).
		Int("timeout", timeoutSecs).
		Msg("Starting requirement extraction")

	text, err := requirements.ReadInput(inputPath)
	if err != nil {
		return handleRequirementsError(err, inputPath, log)
	}

	ctx, cancel := createContextWithTimeout(cmd.Context(), timeoutSecs, log)
	defer cancel()

	extractor := requirements.NewMistralExtractor(client, model)
	result, err := extractor.Extract(ctx, text)
	if err != nil {
		return handleRequirementsError(err, inputPath, log)
	}

	if err := requirements.WriteCSV(outputPath, result.Requirements); err != nil {
		log.Error().Err(err).Str("output", outputPath).Msg("Failed to write CSV")
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	if xlsxPath != "" {
		if err := requirements.WriteXLSX(xlsxPath, result.Requirements); err != nil {
			log.Error().Err(err).Str("xlsx", xlsxPath).Msg("Failed to write Excel workbook")
			return fmt.Errorf("failed to write Excel workbook: %w", err)
		}
	}

	if rawPath != "" {
		if err := requirements.WriteRaw(rawPath, result.RawResponse); err != nil {
			log.Error().Err(err).Str("raw", rawPath).Msg("Failed to write raw reply")
			return fmt.Errorf("failed to write raw reply: %w", err)
		}
	}

	log.Info().
		Int("requirements", len(result.Requirements)).
		Str("output", outputPath).
		Dur("duration", result.ProcessingDuration).
		Msg("Requirement extraction completed successfully")

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d requirements to %s\n",
		len(result.Requirements), outputPath); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// handleRequirementsError provides user-friendly error messages for extraction failures
func handleRequirementsError(err error, inputPath string, log zerolog.Logger) error {
	log.Error().Err(err).Str("input", inputPath).Msg("Requirement extraction failed")

	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("input file not found: %s: %w", inputPath, err)
	case errors.Is(err, requirements.ErrInvalidEncoding):
		return fmt.Errorf("input file is not valid UTF-8 text: %s: %w", inputPath, err)
	case errors.Is(err, requirements.ErrEmptyInput):
		return fmt.Errorf("input file contains no text: %s: %w", inputPath, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("extraction timed out. Try increasing --timeout: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("extraction was canceled: %w", err)
	case errors.Is(err, mistral.ErrUnauthorized):
		return fmt.Errorf("Mistral API authentication failed. Please check MISTRALAI_API_KEY: %w", err)
	case errors.Is(err, requirements.ErrMalformedResponse):
		return fmt.Errorf("the model reply was not a JSON list of requirements, no CSV written. Use --raw to inspect it: %w", err)
	default:
		return fmt.Errorf("requirement extraction failed: %w", err)
	}
}
