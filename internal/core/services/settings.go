package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyStorageBackend  = "storage.backend"
	keyStorageDataDir  = "storage.data_dir"
	keyStorageDSN      = "storage.dsn"
	keyStorageMaxConns = "storage.max_connections"
	keyEmbedTimeout    = "pipeline.embed_timeout_seconds"
	keyAnalysisTimeout = "pipeline.analysis_timeout_seconds"
	keyReportTimeout   = "pipeline.report_timeout_seconds"
	keyStoreTimeout    = "pipeline.store_timeout_seconds"
	keyNotifyTimeout   = "pipeline.notify_timeout_seconds"
	keyWebhookURL      = "notify.webhook_url"
	keyNotifyPerMinute = "notify.per_minute"
)

// Environment overrides, applied after the config file.
const (
	EnvOllamaHost     = "OLLAMA_HOST"
	EnvOllamaModel    = "OLLAMA_MODEL"
	EnvEmbeddingModel = "EMBEDDING_MODEL"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvSlackWebhook   = "SLACK_WEBHOOK_URL"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvStoreBackend   = "CONTRACT_AGENT_STORE"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := s.fromConfig()
	s.applyEnv(settings)
	return settings, nil
}

// fromConfig merges the config file over the defaults.
func (s *SettingsService) fromConfig() *domain.AppSettings {
	defaults := domain.DefaultAppSettings()

	return &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Storage: domain.StorageSettings{
			Backend:        s.getBackend(defaults.Storage.Backend),
			DataDir:        s.configStore.GetString(keyStorageDataDir),
			DSN:            s.configStore.GetString(keyStorageDSN),
			MaxConnections: s.getInt(keyStorageMaxConns, defaults.Storage.MaxConnections),
		},
		Pipeline: domain.PipelineSettings{
			EmbedTimeout:    s.getSeconds(keyEmbedTimeout, defaults.Pipeline.EmbedTimeout),
			AnalysisTimeout: s.getSeconds(keyAnalysisTimeout, defaults.Pipeline.AnalysisTimeout),
			ReportTimeout:   s.getSeconds(keyReportTimeout, defaults.Pipeline.ReportTimeout),
			StoreTimeout:    s.getSeconds(keyStoreTimeout, defaults.Pipeline.StoreTimeout),
			NotifyTimeout:   s.getSeconds(keyNotifyTimeout, defaults.Pipeline.NotifyTimeout),
		},
		Notify: domain.NotifySettings{
			WebhookURL: s.configStore.GetString(keyWebhookURL),
			PerMinute:  s.getInt(keyNotifyPerMinute, defaults.Notify.PerMinute),
		},
	}
}

// applyEnv overlays environment variables.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if host, ok := s.env(EnvOllamaHost); ok {
		if settings.Embedding.Provider == domain.AIProviderOllama {
			settings.Embedding.BaseURL = host
		}
		if settings.LLM.Provider == domain.AIProviderOllama {
			settings.LLM.BaseURL = host
		}
	}
	if model, ok := s.env(EnvOllamaModel); ok && settings.LLM.Provider == domain.AIProviderOllama {
		settings.LLM.Model = model
	}
	if model, ok := s.env(EnvEmbeddingModel); ok {
		settings.Embedding.Model = model
	}
	if key, ok := s.env(EnvOpenAIKey); ok {
		if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
			settings.Embedding.APIKey = key
		}
		if settings.LLM.Provider == domain.AIProviderOpenAI && settings.LLM.APIKey == "" {
			settings.LLM.APIKey = key
		}
	}
	if url, ok := s.env(EnvSlackWebhook); ok {
		settings.Notify.WebhookURL = url
	}
	if dsn, ok := s.env(EnvDatabaseURL); ok {
		settings.Storage.DSN = dsn
		if _, explicit := s.configStore.Get(keyStorageBackend); !explicit {
			settings.Storage.Backend = domain.StoragePostgres
		}
	}
	if raw, ok := s.env(EnvStoreBackend); ok {
		if backend := domain.StorageBackend(raw); backend.IsValid() {
			settings.Storage.Backend = backend
		}
	}

	// Ollama needs an endpoint; cloud providers use their own default.
	if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = defaultOllamaURL
	}
	if settings.LLM.Provider == domain.AIProviderOllama && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = defaultOllamaURL
	}
}

// Save persists application settings.
// Values that came from the environment are written as resolved.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := map[string]any{
		keyEmbedProvider:   settings.Embedding.Provider.String(),
		keyEmbedModel:      settings.Embedding.Model,
		keyEmbedBaseURL:    settings.Embedding.BaseURL,
		keyLLMProvider:     settings.LLM.Provider.String(),
		keyLLMModel:        settings.LLM.Model,
		keyLLMBaseURL:      settings.LLM.BaseURL,
		keyStorageBackend:  string(settings.Storage.Backend),
		keyStorageDataDir:  settings.Storage.DataDir,
		keyStorageDSN:      settings.Storage.DSN,
		keyStorageMaxConns: settings.Storage.MaxConnections,
		keyEmbedTimeout:    int(settings.Pipeline.EmbedTimeout / time.Second),
		keyAnalysisTimeout: int(settings.Pipeline.AnalysisTimeout / time.Second),
		keyReportTimeout:   int(settings.Pipeline.ReportTimeout / time.Second),
		keyStoreTimeout:    int(settings.Pipeline.StoreTimeout / time.Second),
		keyNotifyTimeout:   int(settings.Pipeline.NotifyTimeout / time.Second),
		keyWebhookURL:      settings.Notify.WebhookURL,
		keyNotifyPerMinute: settings.Notify.PerMinute,
	}

	// API keys are only written when present.
	if settings.Embedding.APIKey != "" {
		values[keyEmbedAPIKey] = settings.Embedding.APIKey
	}
	if settings.LLM.APIKey != "" {
		values[keyLLMAPIKey] = settings.LLM.APIKey
	}

	if err := s.configStore.SetMany(values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings := s.fromConfig()
	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: LLM provider %q", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings := s.fromConfig()
	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetStorage selects the persistence backend.
func (s *SettingsService) SetStorage(backend domain.StorageBackend, dsn string) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: storage backend %q", domain.ErrInvalidInput, backend)
	}
	if backend == domain.StoragePostgres && dsn == "" {
		return fmt.Errorf("%w: postgres requires a DSN", domain.ErrInvalidInput)
	}

	settings := s.fromConfig()
	settings.Storage.Backend = backend
	if dsn != "" {
		settings.Storage.DSN = dsn
	}
	return s.Save(settings)
}

// SetWebhook configures the notification webhook.
func (s *SettingsService) SetWebhook(url string) error {
	if err := s.configStore.Set(keyWebhookURL, url); err != nil {
		return fmt.Errorf("save %s: %w", keyWebhookURL, err)
	}
	return nil
}

// Validate checks that the resolved settings can build a pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %q is not configured",
			domain.ErrInvalidInput, settings.LLM.Provider)
	}
	if settings.Storage.Backend == domain.StoragePostgres && settings.Storage.DSN == "" {
		return fmt.Errorf("%w: postgres storage requires %s or storage.dsn",
			domain.ErrInvalidInput, EnvDatabaseURL)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) env(key string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	val, ok := s.lookupEnv(key)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Second
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(keyStorageBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func modelOrDefault(model, defaultModel string) string {
	if model != "" {
		return model
	}
	return defaultModel
}

// baseURLFor keeps a configured Ollama endpoint and clears it for cloud providers.
func baseURLFor(provider domain.AIProvider, current string) string {
	if provider != domain.AIProviderOllama {
		return ""
	}
	if current == "" {
		return defaultOllamaURL
	}
	return current
}
