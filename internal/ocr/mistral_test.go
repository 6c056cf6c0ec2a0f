package ocr_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mistraltools/internal/mistral"
	"mistraltools/internal/mistral/mistraltest"
	"mistraltools/internal/ocr"
)

const ocrBody = `{"pages":[{"index":0,"markdown":"Hello ![img-0.jpeg](img-0.jpeg)","images":[{"id":"img-0.jpeg","image_base64":"data:image/jpeg;base64,aGVsbG8="}]}],"model":"mistral-ocr-latest","usage_info":{"pages_processed":1,"doc_size_bytes":null}}`

func newService(t *testing.T, srv *mistraltest.Server) ocr.OCRService {
	t.Helper()
	client, err := mistral.NewClient(srv.Config())
	require.NoError(t, err)
	return ocr.NewMistralOCRService(client, "")
}

func TestProcessPDF(t *testing.T) {
	srv := mistraltest.NewServer(t)
	srv.OCRResponse = []byte(ocrBody)
	svc := newService(t, srv)

	pdf := []byte("%PDF-1.7\nfake body")
	result, err := svc.ProcessPDF(context.Background(), "doc.pdf", bytes.NewReader(pdf))
	require.NoError(t, err)

	assert.Equal(t, "file-123", result.FileID)
	assert.Equal(t, []byte(ocrBody), result.Raw)
	require.Len(t, result.Response.Pages, 1)
	assert.Equal(t, "Hello ![img-0.jpeg](img-0.jpeg)", result.Response.Pages[0].Markdown)
	assert.Equal(t, 1, result.Response.ImageCount())
	assert.False(t, result.ProcessedAt.IsZero())

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "doc.pdf", uploads[0].Name)
	assert.Equal(t, string(mistral.PurposeOCR), uploads[0].Purpose)
	assert.Equal(t, pdf, uploads[0].Data)

	reqs := srv.OCRRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, mistral.DefaultOCRModel, reqs[0].Model)
	assert.Equal(t, srv.URL+"/signed/file-123", reqs[0].Document.DocumentURL)
	assert.True(t, reqs[0].IncludeImageBase64)
}

func TestProcessPDF_RejectsNonPDF(t *testing.T) {
	srv := mistraltest.NewServer(t)
	svc := newService(t, srv)

	_, err := svc.ProcessPDF(context.Background(), "notes.pdf", strings.NewReader("plain text"))
	require.ErrorIs(t, err, ocr.ErrInvalidPDF)
	assert.Zero(t, srv.Calls(), "no request should reach the API")
}

func TestProcessPDF_Unauthorized(t *testing.T) {
	srv := mistraltest.NewServer(t)
	cfg := srv.Config()
	cfg.APIKey = "bad-key"
	client, err := mistral.NewClient(cfg)
	require.NoError(t, err)
	svc := ocr.NewMistralOCRService(client, "")

	_, err = svc.ProcessPDF(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ocr.ErrOCRFailed)
	assert.ErrorIs(t, err, mistral.ErrUnauthorized)
}

func TestProcessPDF_APIError(t *testing.T) {
	srv := mistraltest.NewServer(t)
	srv.FailStatus = http.StatusServiceUnavailable
	svc := newService(t, srv)

	_, err := svc.ProcessPDF(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4"))
	require.ErrorIs(t, err, ocr.ErrOCRFailed)

	var apiErr *mistral.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestProcessPDF_NoPages(t *testing.T) {
	srv := mistraltest.NewServer(t)
	srv.OCRResponse = []byte(`{"pages":[],"model":"mistral-ocr-latest"}`)
	svc := newService(t, srv)

	_, err := svc.ProcessPDF(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4"))
	assert.ErrorIs(t, err, ocr.ErrEmptyDocument)
}

func TestProcessPDF_MalformedResponse(t *testing.T) {
	srv := mistraltest.NewServer(t)
	srv.OCRResponse = []byte(`{"pages": [`)
	svc := newService(t, srv)

	_, err := svc.ProcessPDF(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4"))
	assert.ErrorIs(t, err, ocr.ErrOCRFailed)
}
