package driven

import "context"

// EmbeddingService turns contract text into the vector fingerprint used by
// the semantic retrieval tier. Both the Ollama and OpenAI adapters satisfy it.
type EmbeddingService interface {
	// Embed returns the fingerprint of text. Vectors from the same model
	// always share one length.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions is the vector length, or 0 for an unknown model until the
	// first Embed.
	Dimensions() int

	ModelName() string

	// Ping issues the smallest request the backend accepts.
	Ping(ctx context.Context) error

	Close() error
}
