// Package requirements extracts requirement records from document text with a
// Mistral chat model and exports them as CSV or XLSX.
//
// The full text and a fixed instruction are sent in a single chat completion. The
// model is asked for a JSON array of {code, description, category} objects. The
// reply is parsed as JSON. A reply that is not well-formed JSON fails the run, and
// nothing is written.
//
// Required Environment Variables:
//   - MISTRALAI_API_KEY: Mistral API key
package requirements

import (
	"context"
	"time"

	"mistraltools/pkg/models"
)

// Extractor defines the interface for requirement extraction services.
type Extractor interface {
	// Extract sends text to the model and returns the parsed requirement records.
	Extract(ctx context.Context, text string) (*ExtractionResult, error)
}

// ExtractionResult holds the parsed records and the reply they came from.
type ExtractionResult struct {
	// Requirements are the parsed records in the order the model returned them.
	Requirements []models.Requirement

	// RawResponse is the assistant message as received.
	RawResponse string

	// Model is the chat model that produced the reply.
	Model string

	// ProcessingDuration is how long the chat call and parsing took.
	ProcessingDuration time.Duration
}
