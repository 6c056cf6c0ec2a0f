package mistral

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Common Mistral API errors
var (
	// ErrMissingAPIKey is returned when MISTRALAI_API_KEY is not configured.
	ErrMissingAPIKey = errors.New("MISTRALAI_API_KEY not found in environment variables")

	// ErrUnauthorized is returned when the API rejects the key (HTTP 401/403).
	ErrUnauthorized = errors.New("Mistral API authentication failed")

	// ErrEmptyResponse is returned when the API answers without usable content.
	ErrEmptyResponse = errors.New("empty response from Mistral API")
)

// APIError is a non-2xx answer from the Mistral API.
type APIError struct {
	// Op is the client operation that failed (e.g., "UploadFile", "OCR").
	Op string

	// StatusCode is the HTTP status returned by the API.
	StatusCode int

	// Message is the error text from the response body, if any.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("mistral: %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mistral: %s failed with status %d", e.Op, e.StatusCode)
}

// Unwrap maps authentication failures onto ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// wrapSDKError converts go-openai errors into APIError so callers see one error type
// for every endpoint.
func wrapSDKError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Op: op, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := string(reqErr.Body)
		if msg == "" && reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &APIError{Op: op, StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}

	return fmt.Errorf("mistral: %s failed: %w", op, err)
}
