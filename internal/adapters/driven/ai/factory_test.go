package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

func TestClients_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		clients := &Clients{}
		// Should not panic
		clients.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantNil  bool
		wantErr  bool
	}{
		{"nil settings returns nil", nil, true, false},
		{"unconfigured settings returns nil", &domain.EmbeddingSettings{}, true, false},
		{"ollama provider creates service", &domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama, BaseURL: "http://localhost:11434", Model: "nomic-embed-text",
		}, false, false},
		{"openai provider creates service", &domain.EmbeddingSettings{
			Provider: domain.AIProviderOpenAI, APIKey: "test-key", Model: "text-embedding-3-small",
		}, false, false},
		{"openai without key is not configured", &domain.EmbeddingSettings{
			Provider: domain.AIProviderOpenAI,
		}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
			} else {
				require.NotNil(t, svc)
				assert.Equal(t, tt.settings.Model, svc.ModelName())
			}
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	svc, err := CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.1:8b"})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "llama3.1:8b", svc.ModelName())

	svc, err = CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", svc.ModelName())

	svc, err = CreateLLMService(nil)
	assert.NoError(t, err)
	assert.Nil(t, svc)
}

func TestNewClients(t *testing.T) {
	settings := domain.DefaultAppSettings()

	clients, err := NewClients(&settings)
	require.NoError(t, err)
	defer clients.Close()

	assert.NotNil(t, clients.Embedding)
	assert.NotNil(t, clients.LLM)
	assert.Empty(t, clients.Warnings)
}

func TestNewClients_LLMMissingIsWarning(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI}

	clients, err := NewClients(&settings)
	require.NoError(t, err)
	assert.Nil(t, clients.LLM)
	require.Len(t, clients.Warnings, 1)
	assert.Contains(t, clients.Warnings[0], "fallback")
}

func TestNewClients_EmbeddingMissingIsError(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}

	_, err := NewClients(&settings)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestValidateConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3.1:8b"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	ctx := context.Background()
	assert.NoError(t, ValidateEmbeddingConfig(ctx, &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, BaseURL: server.URL,
	}))
	assert.NoError(t, ValidateLLMConfig(ctx, &domain.LLMSettings{
		Provider: domain.AIProviderOllama, BaseURL: server.URL,
	}))
	assert.ErrorContains(t, ValidateLLMConfig(ctx, &domain.LLMSettings{
		Provider: domain.AIProviderOllama, BaseURL: server.URL, Model: "phi3",
	}), "not pulled")
	assert.Error(t, ValidateLLMConfig(ctx, &domain.LLMSettings{}))
}
