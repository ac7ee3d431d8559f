package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

func TestGateway_Embed(t *testing.T) {
	g := NewGateway(&mockEmbedder{vector: []float32{0.5, 0.5}}, nil, time.Second)

	vec, err := g.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
	assert.Equal(t, "mock-embed", g.EmbeddingModel())
	assert.Empty(t, g.LLMModel())
}

func TestGateway_Embed_Errors(t *testing.T) {
	tests := []struct {
		name     string
		embedder driven.EmbeddingService
	}{
		{"not configured", nil},
		{"service error", &mockEmbedder{err: errBoom}},
		{"empty vector", &mockEmbedder{vector: []float32{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGateway(tt.embedder, nil, time.Second).Embed(context.Background(), "text")
			assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		})
	}
}

func TestGateway_Generate(t *testing.T) {
	g := NewGateway(nil, staticLLM("ok", "ok"), 0)

	text, err := g.Generate(context.Background(), "prompt", driven.GenerateOptions{}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, "mock-llm", g.LLMModel())
}

func TestGateway_Generate_Timeout(t *testing.T) {
	llm := hangingLLM()
	g := NewGateway(nil, llm, 0)

	start := time.Now()
	_, err := g.Generate(context.Background(), "prompt", driven.GenerateOptions{}, 20*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrGenerationTimeout)
	assert.NotErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, llm.calls())
}

func TestGateway_Generate_Failure(t *testing.T) {
	_, err := NewGateway(nil, unreachableLLM(), 0).
		Generate(context.Background(), "prompt", driven.GenerateOptions{}, time.Second)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.NotErrorIs(t, err, domain.ErrGenerationTimeout)
}

func TestGateway_Generate_NoLLM(t *testing.T) {
	_, err := NewGateway(nil, nil, 0).Generate(context.Background(), "p", driven.GenerateOptions{}, time.Second)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
