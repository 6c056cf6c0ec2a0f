package requirements

import "errors"

// Common requirement extraction errors
var (
	// ErrEmptyInput is returned when the input text has no content to extract from.
	ErrEmptyInput = errors.New("input text is empty")

	// ErrInvalidEncoding is returned when the input file is not valid UTF-8.
	ErrInvalidEncoding = errors.New("input file is not valid UTF-8")

	// ErrMalformedResponse is returned when the model reply is not a JSON list of
	// requirement objects.
	ErrMalformedResponse = errors.New("model response is not a valid JSON list of requirements")

	// ErrExtractionFailed is returned when the chat completion call fails.
	ErrExtractionFailed = errors.New("requirement extraction failed")
)
