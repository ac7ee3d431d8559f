// Package ai builds the embedding and generation clients from settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/contract-agent/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/contract-agent/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/contract-agent/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/contract-agent/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Clients holds the shared AI clients for the lifetime of a command.
// Both are safe for concurrent use by multiple pipeline runs.
type Clients struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService

	// Warnings lists non-fatal setup problems, such as a missing LLM
	// configuration that forces fallback analyses.
	Warnings []string
}

// Close releases all resources held by the clients.
func (c *Clients) Close() {
	if c.Embedding != nil {
		c.Embedding.Close()
	}
	if c.LLM != nil {
		c.LLM.Close()
	}
}

// NewClients builds both clients without contacting them.
// Connectivity is not checked here: an unreachable LLM degrades each run
// to fallback content rather than blocking startup.
//
// An unusable embedding configuration is an error because no document can
// be ingested without it. An unusable LLM configuration only adds a warning.
func NewClients(settings *domain.AppSettings) (*Clients, error) {
	clients := &Clients{}

	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	clients.Embedding = embedder

	llm, err := CreateLLMService(&settings.LLM)
	switch {
	case err != nil:
		clients.Warnings = append(clients.Warnings, fmt.Sprintf("LLM disabled: %v", err))
	case llm == nil:
		clients.Warnings = append(clients.Warnings,
			fmt.Sprintf("LLM provider %q is not configured; analyses will use fallback content", settings.LLM.Provider))
	default:
		clients.LLM = llm
	}

	return clients, nil
}

// ValidateEmbeddingConfig creates an embedding service and pings it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return errors.New("embedding provider not configured")
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates an LLM service and pings it.
func ValidateLLMConfig(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return errors.New("LLM provider not configured")
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service named by settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the LLM service named by settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
