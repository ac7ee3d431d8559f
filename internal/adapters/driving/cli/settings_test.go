package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "(not set)", maskDSN(""))
	assert.Equal(t, "postgres://admin:xxxxx@db:5432/contracts", maskDSN("postgres://admin:hunter2@db:5432/contracts"))
	assert.Equal(t, "postgres://db/contracts", maskDSN("postgres://db/contracts"))
	assert.Equal(t, "****", maskDSN("host=db password=hunter2"))
}

func TestMaskWebhook(t *testing.T) {
	assert.Equal(t, "https://hooks.slack.com/****", maskWebhook("https://hooks.slack.com/services/T0/B0/secret"))
	assert.Equal(t, "****", maskWebhook("not a url"))
}

func TestSettingsCmd(t *testing.T) {
	settings := newMockSettings()
	settings.settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o-mini", APIKey: "sk-1234567890abcdef"}
	settings.settings.Storage = domain.StorageSettings{
		Backend:        domain.StoragePostgres,
		DSN:            "postgres://admin:hunter2@db/contracts",
		MaxConnections: 5,
	}
	settings.settings.Notify.WebhookURL = "https://hooks.slack.com/services/T0/B0/secret"
	setTestSettings(t, settings)

	out, err := execute(t, "settings")
	require.NoError(t, err)

	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "Provider: Ollama (local)")
	assert.Contains(t, out, "Provider: OpenAI (cloud)")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.Contains(t, out, "DSN: postgres://admin:xxxxx@db/contracts")
	assert.Contains(t, out, "Webhook: https://hooks.slack.com/****")
	assert.Contains(t, out, "Analysis timeout: 1m30s")
	assert.Contains(t, out, "Configuration is valid.")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "secret")
}

func TestSettingsCmd_InvalidConfiguration(t *testing.T) {
	settings := newMockSettings()
	settings.settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI}
	settings.validateErr = errors.New("LLM: API key required")
	setTestSettings(t, settings)

	out, err := execute(t, "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "API Key: (not set)")
	assert.Contains(t, out, "Status: not configured")
	assert.Contains(t, out, "Warning: LLM: API key required")
	assert.Contains(t, out, "Webhook: (disabled)")
}
