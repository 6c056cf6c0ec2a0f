package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"mistraltools/internal/logger"
	"mistraltools/internal/mistral"
	"mistraltools/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [pdf-file]",
	Short: "Convert a PDF to markdown using Mistral OCR",
	Long: `Process a PDF file with the Mistral OCR API and write the result as markdown.

The PDF is uploaded to Mistral, a signed URL is requested for it, and the
document is OCR'd with embedded images included. The command writes:

  <name>.json   the raw OCR response
  <name>.md     the page markdown, with image links pointing at saved files
  <name>_<id>   one file per embedded image

Files are written next to the PDF unless --output-dir is given. The final
markdown is also printed to stdout.

Required environment variables:
  MISTRALAI_API_KEY - Your Mistral API key`,
	Example: `  # OCR a document, writing report.json, report.md and images next to it
  mistral-tools ocr report.pdf

  # Write outputs to a separate directory
  mistral-tools ocr report.pdf --output-dir out/

  # Process with custom timeout
  mistral-tools ocr large-document.pdf --timeout 600`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output-dir", "d", "", "Directory for output files (default: next to the PDF)")
	ocrCmd.Flags().String("model", "", "OCR model (default: MISTRAL_OCR_MODEL or mistral-ocr-latest)")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	pdfPath := args[0]
	log := logger.WithFile("ocr", pdfPath)

	outputDir, _ := cmd.Flags().GetString("output-dir")
	model, _ := cmd.Flags().GetString("model")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	log.Info().
		Str("output_dir", outputDir).
		Int("timeout", timeoutSecs).
		Msg("Starting OCR processing")

	fileInfo, err := validatePDFFile(pdfPath, log)
	if err != nil {
		return err
	}

	cfg, client, err := newMistralClient()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Mistral client")
		return err
	}
	if model == "" {
		model = cfg.MistralOCRModel
	}

	ctx, cancel := createContextWithTimeout(cmd.Context(), timeoutSecs, log)
	defer cancel()

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", pdfPath).
			Msg("Failed to open PDF file")
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer func() {
		if closeErr := pdfFile.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close PDF file")
		}
	}()

	ocrService := ocr.NewMistralOCRService(client, model)
	result, err := ocrService.ProcessPDF(ctx, fileInfo.Name(), pdfFile)
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Int("page_count", len(result.Response.Pages)).
		Int("image_count", result.Response.ImageCount()).
		Dur("duration", result.ProcessingDuration).
		Msg("OCR processing completed successfully")

	if outputDir == "" {
		outputDir = filepath.Dir(pdfPath)
	}
	stem := strings.TrimSuffix(fileInfo.Name(), filepath.Ext(fileInfo.Name()))

	out, err := ocr.WriteOutputs(result, outputDir, stem)
	if err != nil {
		log.Error().Err(err).Msg("Failed to write OCR output")
		return fmt.Errorf("failed to write OCR output: %w", err)
	}

	log.Info().
		Str("json", out.JSONPath).
		Str("markdown", out.MarkdownPath).
		Int("images", len(out.ImagePaths)).
		Msg("OCR results written")

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), out.Markdown); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// validatePDFFile checks that the file exists, is a regular non-empty .pdf within the
// size limit, and starts with the PDF magic. The local parse is informational only.
func validatePDFFile(pdfPath string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("PDF file not found")
			return nil, fmt.Errorf("PDF file not found: %s", pdfPath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("Permission denied accessing PDF file")
			return nil, fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
		}
		return nil, fmt.Errorf("error accessing PDF file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", pdfPath).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", pdfPath)
	}

	if !strings.EqualFold(filepath.Ext(pdfPath), ".pdf") {
		log.Error().
			Str("file", pdfPath).
			Msg("File does not have .pdf extension")
		return nil, fmt.Errorf("invalid file format, only PDF files are supported: %s", pdfPath)
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", pdfPath).
			Msg("PDF file is empty")
		return nil, fmt.Errorf("PDF file is empty: %s", pdfPath)
	}

	if fileInfo.Size() > ocr.MaxFileSizeBytes {
		log.Error().
			Str("file", pdfPath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", ocr.MaxFileSizeBytes).
			Msg("PDF file exceeds maximum size limit")
		return nil, fmt.Errorf("PDF file too large (%d bytes). Maximum size is %d bytes (50MB)",
			fileInfo.Size(), ocr.MaxFileSizeBytes)
	}

	if err := ocr.CheckPDFHeader(pdfPath); err != nil {
		log.Error().
			Err(err).
			Str("file", pdfPath).
			Msg("File is not a PDF")
		return nil, fmt.Errorf("invalid or corrupted PDF file %s: %w", pdfPath, err)
	}

	info, err := ocr.InspectPDF(pdfPath)
	if err != nil {
		log.Warn().
			Err(err).
			Str("file", pdfPath).
			Msg("PDF could not be parsed locally, uploading anyway")
	} else {
		log.Info().
			Str("file", pdfPath).
			Int64("size", fileInfo.Size()).
			Int("pages", info.Pages).
			Msg("PDF validated")
	}

	return fileInfo, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(parent context.Context, timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled: %w", err)
	case errors.Is(err, mistral.ErrUnauthorized):
		return fmt.Errorf("Mistral API authentication failed. Please check MISTRALAI_API_KEY: %w", err)
	case errors.Is(err, ocr.ErrPDFTooLarge):
		return fmt.Errorf("PDF file is too large (maximum 50MB). Try compressing or splitting the file: %w", err)
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity: %w", err)
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("the OCR response contained no pages: %w", err)
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues, API quota limits, or service unavailability: %w", err)
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
