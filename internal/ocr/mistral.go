package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"mistraltools/internal/logger"
	"mistraltools/internal/mistral"
)

const (
	// MaxFileSizeBytes is the maximum document size accepted by the OCR API (50MB)
	MaxFileSizeBytes = 50 * 1024 * 1024

	// SignedURLExpiryHours is how long the signed document URL stays valid
	SignedURLExpiryHours = 1
)

// apiClient is the subset of the Mistral client the OCR service needs.
type apiClient interface {
	UploadFile(ctx context.Context, name string, data []byte, purpose openai.PurposeType) (string, error)
	SignedURL(ctx context.Context, fileID string, expiryHours int) (string, error)
	OCR(ctx context.Context, req mistral.OCRRequest) ([]byte, error)
}

// MistralOCRService implements OCRService using the Mistral OCR API.
type MistralOCRService struct {
	client apiClient
	model  string
	log    zerolog.Logger
}

// NewMistralOCRService creates a new OCR service backed by the given client.
// An empty model selects mistral.DefaultOCRModel.
func NewMistralOCRService(client *mistral.Client, model string) OCRService {
	if model == "" {
		model = mistral.DefaultOCRModel
	}
	return &MistralOCRService{
		client: client,
		model:  model,
		log:    logger.WithComponent("ocr-mistral"),
	}
}

// ProcessPDF uploads the document, requests a signed URL and runs OCR with inline
// images enabled.
func (m *MistralOCRService) ProcessPDF(ctx context.Context, name string, pdfData io.Reader) (*OCRResult, error) {
	const op = "ProcessPDF"
	startTime := time.Now()

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read PDF data")
	}

	if len(pdfBytes) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrPDFTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}

	if !bytes.HasPrefix(pdfBytes, []byte("%PDF")) {
		return nil, WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	m.log.Info().
		Str("name", name).
		Int("size", len(pdfBytes)).
		Msg("Uploading PDF")

	fileID, err := m.client.UploadFile(ctx, name, pdfBytes, mistral.PurposeOCR)
	if err != nil {
		return nil, WrapOCRError(op, fmt.Errorf("%w: %w", ErrOCRFailed, err), "upload failed")
	}

	signedURL, err := m.client.SignedURL(ctx, fileID, SignedURLExpiryHours)
	if err != nil {
		return nil, WrapOCRError(op, fmt.Errorf("%w: %w", ErrOCRFailed, err), "signed URL request failed")
	}

	m.log.Info().
		Str("file_id", fileID).
		Str("model", m.model).
		Msg("Performing OCR on the document")

	raw, err := m.client.OCR(ctx, mistral.OCRRequest{
		Model:              m.model,
		Document:           mistral.NewDocumentURLChunk(signedURL),
		IncludeImageBase64: true,
	})
	if err != nil {
		return nil, WrapOCRError(op, fmt.Errorf("%w: %w", ErrOCRFailed, err), "OCR request failed")
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, WrapOCRError(op, fmt.Errorf("%w: %w", ErrOCRFailed, err), "failed to decode OCR response")
	}

	if len(resp.Pages) == 0 {
		return nil, WrapOCRError(op, ErrEmptyDocument, "")
	}

	processedAt := time.Now()
	m.log.Info().
		Int("pages", len(resp.Pages)).
		Int("images", resp.ImageCount()).
		Dur("duration", processedAt.Sub(startTime)).
		Msg("OCR response received")

	return &OCRResult{
		Response:           &resp,
		Raw:                raw,
		FileID:             fileID,
		ProcessedAt:        processedAt,
		ProcessingDuration: processedAt.Sub(startTime),
	}, nil
}
