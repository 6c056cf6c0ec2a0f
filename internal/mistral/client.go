// Package mistral is a small client for the hosted Mistral AI API.
//
// Chat completions and file uploads go through go-openai, because Mistral serves an
// OpenAI-compatible surface for both. The signed URL and OCR endpoints have no
// OpenAI equivalent and are called directly over HTTP.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"mistraltools/internal/logger"
)

const (
	// DefaultBaseURL is the public Mistral API endpoint.
	DefaultBaseURL = "https://api.mistral.ai/v1"

	// DefaultOCRModel is the model used for document OCR.
	DefaultOCRModel = "mistral-ocr-latest"

	// DefaultChatModel is the model used for requirement extraction.
	DefaultChatModel = "mistral-large-latest"

	// PurposeOCR marks uploaded files as OCR input.
	PurposeOCR openai.PurposeType = "ocr"
)

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string

	// HTTPClient is optional; http.DefaultClient is used when nil.
	HTTPClient *http.Client
}

// Client talks to the Mistral API.
type Client struct {
	api        *openai.Client
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        zerolog.Logger
}

// DocumentURLChunk references a document by URL in an OCR request.
type DocumentURLChunk struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

// OCRRequest is the body of POST /ocr.
type OCRRequest struct {
	Model              string           `json:"model"`
	Document           DocumentURLChunk `json:"document"`
	IncludeImageBase64 bool             `json:"include_image_base64"`
}

// NewDocumentURLChunk builds the document chunk for a signed URL.
func NewDocumentURLChunk(documentURL string) DocumentURLChunk {
	return DocumentURLChunk{Type: "document_url", DocumentURL: documentURL}
}

type signedURLResponse struct {
	URL string `json:"url"`
}

// NewClient creates a client. It fails with ErrMissingAPIKey when no key is set.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.BaseURL = baseURL
	apiConfig.HTTPClient = httpClient

	return &Client{
		api:        openai.NewClientWithConfig(apiConfig),
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		log:        logger.WithComponent("mistral"),
	}, nil
}

// UploadFile uploads data under name and returns the new file ID.
func (c *Client) UploadFile(ctx context.Context, name string, data []byte, purpose openai.PurposeType) (string, error) {
	const op = "UploadFile"

	c.log.Debug().
		Str("name", name).
		Int("bytes", len(data)).
		Str("purpose", string(purpose)).
		Msg("Uploading file")

	file, err := c.api.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   data,
		Purpose: purpose,
	})
	if err != nil {
		return "", wrapSDKError(op, err)
	}
	if file.ID == "" {
		return "", fmt.Errorf("%s: %w: missing file id", op, ErrEmptyResponse)
	}

	c.log.Debug().Str("file_id", file.ID).Msg("File uploaded")
	return file.ID, nil
}

// SignedURL returns a temporary download URL for an uploaded file.
// expiryHours is how long the URL stays valid.
func (c *Client) SignedURL(ctx context.Context, fileID string, expiryHours int) (string, error) {
	const op = "SignedURL"

	query := url.Values{}
	query.Set("expiry", strconv.Itoa(expiryHours))

	body, err := c.doJSON(ctx, op, http.MethodGet, "/files/"+url.PathEscape(fileID)+"/url", query, nil)
	if err != nil {
		return "", err
	}

	var resp signedURLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("%s: %w: missing url", op, ErrEmptyResponse)
	}
	return resp.URL, nil
}

// OCR runs document OCR and returns the raw response body.
func (c *Client) OCR(ctx context.Context, req OCRRequest) ([]byte, error) {
	const op = "OCR"

	c.log.Debug().
		Str("model", req.Model).
		Bool("include_image_base64", req.IncludeImageBase64).
		Msg("Requesting OCR")

	body, err := c.doJSON(ctx, op, http.MethodPost, "/ocr", nil, req)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	return body, nil
}

// Chat sends a single user message and returns the content of the first choice.
func (c *Client) Chat(ctx context.Context, model, prompt string, temperature float32) (string, error) {
	const op = "Chat"

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", wrapSDKError(op, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w: no choices", op, ErrEmptyResponse)
	}

	c.log.Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("Chat completion received")

	return resp.Choices[0].Message.Content, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mistral: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mistral: %s: failed to read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage pulls a readable message out of an error body. Mistral uses
// {"message": ...} for most errors and {"detail": ...} for validation errors.
func errorMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if len(payload.Detail) > 0 {
			return string(payload.Detail)
		}
	}
	return strings.TrimSpace(string(body))
}
