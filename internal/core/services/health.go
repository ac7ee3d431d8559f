package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
)

// Ensure HealthService implements the interface.
var _ driving.HealthService = (*HealthService)(nil)

const healthPingTimeout = 5 * time.Second

// errNotConfigured marks a collaborator that was never built.
var errNotConfigured = errors.New("not configured")

// HealthService pings the pipeline's collaborators.
type HealthService struct {
	embedder driven.EmbeddingService
	llm      driven.LLMService
	store    driven.DocumentStore
	storeTag string
}

// NewHealthService creates a health service. Any collaborator may be nil.
func NewHealthService(
	embedder driven.EmbeddingService, llm driven.LLMService, store driven.DocumentStore, storeTag string,
) *HealthService {
	return &HealthService{embedder: embedder, llm: llm, store: store, storeTag: storeTag}
}

// Check pings embedding, LLM and store in that order.
func (s *HealthService) Check(ctx context.Context) []driving.ComponentHealth {
	results := make([]driving.ComponentHealth, 0, 3)

	embed := driving.ComponentHealth{Name: "embedding", Err: errNotConfigured}
	if s.embedder != nil {
		embed.Detail = s.embedder.ModelName()
		embed.Err = ping(ctx, s.embedder.Ping)
	}
	results = append(results, embed)

	llm := driving.ComponentHealth{Name: "llm", Err: errNotConfigured}
	if s.llm != nil {
		llm.Detail = s.llm.ModelName()
		llm.Err = ping(ctx, s.llm.Ping)
	}
	results = append(results, llm)

	store := driving.ComponentHealth{Name: "store", Detail: s.storeTag, Err: errNotConfigured}
	if s.store != nil {
		store.Err = ping(ctx, s.store.Ping)
	}
	results = append(results, store)

	return results
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	return fn(ctx)
}
