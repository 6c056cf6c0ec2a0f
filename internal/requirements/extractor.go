package requirements

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"mistraltools/internal/logger"
	"mistraltools/internal/mistral"
)

// DefaultTemperature keeps the model close to the source wording.
const DefaultTemperature float32 = 0.1

// chatClient is the subset of the Mistral client the extractor needs.
type chatClient interface {
	Chat(ctx context.Context, model, prompt string, temperature float32) (string, error)
}

// MistralExtractor implements Extractor with a Mistral chat model.
type MistralExtractor struct {
	client      chatClient
	model       string
	temperature float32
	log         zerolog.Logger
}

// NewMistralExtractor creates an extractor. An empty model selects
// mistral.DefaultChatModel.
func NewMistralExtractor(client *mistral.Client, model string) Extractor {
	if model == "" {
		model = mistral.DefaultChatModel
	}
	return &MistralExtractor{
		client:      client,
		model:       model,
		temperature: DefaultTemperature,
		log:         logger.WithComponent("requirements-mistral"),
	}
}

// Extract sends the text with the fixed instruction prompt and parses the reply.
func (e *MistralExtractor) Extract(ctx context.Context, text string) (*ExtractionResult, error) {
	const op = "Extract"
	startTime := time.Now()

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyInput)
	}

	prompt := BuildPrompt(text)

	e.log.Info().
		Str("model", e.model).
		Int("text_length", len(text)).
		Int("prompt_length", len(prompt)).
		Msg("Sending prompt to Mistral")

	content, err := e.client.Chat(ctx, e.model, prompt, e.temperature)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrExtractionFailed, err)
	}

	reqs, err := ParseResponse(content)
	if err != nil {
		e.log.Error().
			Err(err).
			Str("response", truncate(content, 500)).
			Msg("Failed to parse model response as JSON")
		return nil, err
	}

	duration := time.Since(startTime)
	e.log.Info().
		Int("requirements", len(reqs)).
		Dur("duration", duration).
		Msg("Requirements extracted")

	return &ExtractionResult{
		Requirements:       reqs,
		RawResponse:        content,
		Model:              e.model,
		ProcessingDuration: duration,
	}, nil
}

// ReadInput reads a UTF-8 text file for extraction.
func ReadInput(path string) (string, error) {
	const op = "ReadInput"

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read %s: %w", op, path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: %s: %w", op, path, ErrInvalidEncoding)
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %s: %w", op, path, ErrEmptyInput)
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
