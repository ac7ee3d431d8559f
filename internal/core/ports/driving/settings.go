package driving

import "github.com/custodia-labs/contract-agent/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get resolves current settings: defaults, then the config file,
	// then environment overrides.
	Get() (*domain.AppSettings, error)

	// Save persists application settings to the config file.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetStorage selects the persistence backend.
	SetStorage(backend domain.StorageBackend, dsn string) error

	// SetWebhook configures the notification webhook. Empty disables it.
	SetWebhook(url string) error

	// Validate checks that the resolved settings can build a pipeline.
	Validate() error
}
