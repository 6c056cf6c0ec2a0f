package mistral_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mistraltools/internal/mistral"
	"mistraltools/internal/mistral/mistraltest"
)

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := mistral.NewClient(mistral.Config{})
	assert.ErrorIs(t, err, mistral.ErrMissingAPIKey)
}

func TestUploadFile(t *testing.T) {
	srv := mistraltest.NewServer(t)
	client, err := mistral.NewClient(srv.Config())
	require.NoError(t, err)

	id, err := client.UploadFile(context.Background(), "doc.pdf", []byte("%PDF-1.4 body"), mistral.PurposeOCR)
	require.NoError(t, err)
	assert.Equal(t, "file-123", id)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "doc.pdf", uploads[0].Name)
	assert.Equal(t, "ocr", uploads[0].Purpose)
	assert.Equal(t, []byte("%PDF-1.4 body"), uploads[0].Data)
}

func TestSignedURL(t *testing.T) {
	srv := mistraltest.NewServer(t)
	client, err := mistral.NewClient(srv.Config())
	require.NoError(t, err)

	signed, err := client.SignedURL(context.Background(), "file-123", 1)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/signed/file-123", signed)
}

func TestOCR_SendsDocumentURLChunk(t *testing.T) {
	srv := mistraltest.NewServer(t)
	srv.OCRResponse = []byte(`{"pages":[],"model":"mistral-ocr-latest"}`)
	client, err := mistral.NewClient(srv.Config())
	require.NoError(t, err)

	raw, err := client.OCR(context.Background(), mistral.OCRRequest{
		Model:              mistral.DefaultOCRModel,
		Document:           mistral.NewDocumentURLChunk("https://example.com/doc"),
		IncludeImageBase64: true,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pages":[],"model":"mistral-ocr-latest"}`, string(raw))

	reqs := srv.OCRRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "document_url", reqs[0].Document.Type)
	assert.Equal(t, "https://example.com/doc", reqs[0].Document.DocumentURL)
	assert.True(t, reqs[0].IncludeImageBase64)
}

func TestOCR_EmptyBody(t *testing.T) {
	srv := mistraltest.NewServer(t)
	client, err := mistral.NewClient(srv.Config())
	require.NoError(t, err)

	_, err = client.OCR(context.Background(), mistral.OCRRequest{Model: mistral.DefaultOCRModel})
	assert.ErrorIs(t, err, mistral.ErrEmptyResponse)
}

func TestChat(t *testing.T) {
	srv := mistraltest.NewServer(t)
	srv.ChatContent = "hello"
	client, err := mistral.NewClient(srv.Config())
	require.NoError(t, err)

	content, err := client.Chat(context.Background(), mistral.DefaultChatModel, "say hello", 0.1)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.Equal(t, []string{"say hello"}, srv.ChatPrompts())
}

func TestUnauthorized(t *testing.T) {
	srv := mistraltest.NewServer(t)
	cfg := srv.Config()
	cfg.APIKey = "wrong"
	client, err := mistral.NewClient(cfg)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = client.UploadFile(ctx, "doc.pdf", []byte("%PDF"), mistral.PurposeOCR)
	assert.ErrorIs(t, err, mistral.ErrUnauthorized)

	_, err = client.SignedURL(ctx, "file-123", 1)
	assert.ErrorIs(t, err, mistral.ErrUnauthorized)

	_, err = client.Chat(ctx, mistral.DefaultChatModel, "hi", 0)
	assert.ErrorIs(t, err, mistral.ErrUnauthorized)
}

func TestServerError(t *testing.T) {
	srv := mistraltest.NewServer(t)
	srv.FailStatus = http.StatusInternalServerError
	client, err := mistral.NewClient(srv.Config())
	require.NoError(t, err)

	_, err = client.OCR(context.Background(), mistral.OCRRequest{Model: mistral.DefaultOCRModel})
	require.Error(t, err)

	var apiErr *mistral.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "OCR", apiErr.Op)
	assert.NotErrorIs(t, err, mistral.ErrUnauthorized)
}
