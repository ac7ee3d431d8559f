package driven

import "context"

// LLMService writes the risk analysis and the narrative report for a
// contract. Callers bound every Generate with their own deadline.
type LLMService interface {
	// Generate returns the raw completion for prompt. JSON extraction is
	// left to the caller.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	ModelName() string

	// Ping issues the smallest request the backend accepts.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions maps onto the backend's sampling options
// (num_predict and temperature for Ollama).
type GenerateOptions struct {
	// MaxTokens caps the completion length. Zero leaves the backend default.
	MaxTokens int

	Temperature float64

	// StopWords end the completion early.
	StopWords []string

	// JSON asks the backend to constrain output to a JSON object
	// (Ollama format "json", OpenAI response_format json_object).
	JSON bool
}
