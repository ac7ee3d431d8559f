package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

// Gateway bounds calls to the remote embedding and generation services and
// converts their failures into domain errors.
// Generation is never retried: a timed-out call goes straight to the
// caller's fallback path.
type Gateway struct {
	embedder     driven.EmbeddingService
	llm          driven.LLMService
	embedTimeout time.Duration
}

// NewGateway creates a gateway. llm may be nil, in which case every
// Generate call fails with domain.ErrLLMUnavailable.
func NewGateway(embedder driven.EmbeddingService, llm driven.LLMService, embedTimeout time.Duration) *Gateway {
	if embedTimeout <= 0 {
		embedTimeout = domain.DefaultPipelineSettings().EmbedTimeout
	}
	return &Gateway{
		embedder:     embedder,
		llm:          llm,
		embedTimeout: embedTimeout,
	}
}

// Embed computes an embedding for text.
// Any failure is reported as domain.ErrEmbeddingUnavailable; the caller
// decides whether that is fatal.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.embedder == nil {
		return nil, fmt.Errorf("%w: not configured", domain.ErrEmbeddingUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, g.embedTimeout)
	defer cancel()

	vec, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", domain.ErrEmbeddingUnavailable)
	}
	return vec, nil
}

// Generate runs one completion bounded by timeout.
// A missed deadline yields domain.ErrGenerationTimeout; every other failure
// yields domain.ErrGenerationFailed.
func (g *Gateway) Generate(
	ctx context.Context, prompt string, opts driven.GenerateOptions, timeout time.Duration,
) (string, error) {
	if g.llm == nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, domain.ErrLLMUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := g.llm.Generate(ctx, prompt, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %w", domain.ErrGenerationTimeout, timeout, err)
		}
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	return text, nil
}

// EmbeddingModel returns the configured embedding model name, if any.
func (g *Gateway) EmbeddingModel() string {
	if g.embedder == nil {
		return ""
	}
	return g.embedder.ModelName()
}

// LLMModel returns the configured generation model name, if any.
func (g *Gateway) LLMModel() string {
	if g.llm == nil {
		return ""
	}
	return g.llm.ModelName()
}
