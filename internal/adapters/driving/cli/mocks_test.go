package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
)

type mockPipeline struct {
	result  *domain.ProcessingResult
	history []domain.HistoryEntry
	err     error

	gotTitle    string
	gotContent  string
	gotMetadata map[string]any
	gotLimit    int
}

var _ driving.PipelineService = (*mockPipeline)(nil)

func (m *mockPipeline) ProcessDocument(
	_ context.Context, title, content string, metadata map[string]any,
) (*domain.ProcessingResult, error) {
	m.gotTitle, m.gotContent, m.gotMetadata = title, content, metadata
	return m.result, m.err
}

func (m *mockPipeline) ProcessDocumentWithProgress(
	ctx context.Context, title, content string, metadata map[string]any, _ domain.ProgressFunc,
) (*domain.ProcessingResult, error) {
	return m.ProcessDocument(ctx, title, content, metadata)
}

func (m *mockPipeline) ListHistory(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	m.gotLimit = limit
	return m.history, m.err
}

func (m *mockPipeline) GetDocument(context.Context, int64) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

type mockRetrieval struct {
	results []domain.SimilarClause
	err     error

	gotQuery    string
	gotLimit    int
	gotMinScore float64
}

func (m *mockRetrieval) FindRelated(_ context.Context, query string, limit int, minScore float64) ([]domain.SimilarClause, error) {
	m.gotQuery, m.gotLimit, m.gotMinScore = query, limit, minScore
	return m.results, m.err
}

type mockHealth struct {
	components []driving.ComponentHealth
}

func (m *mockHealth) Check(context.Context) []driving.ComponentHealth {
	return m.components
}

type mockSeed struct {
	outcomes []domain.SeedOutcome
	called   bool
}

func (m *mockSeed) SeedSamples(context.Context) []domain.SeedOutcome {
	m.called = true
	return m.outcomes
}

// mockSettings records setter calls against an in-memory AppSettings.
type mockSettings struct {
	settings    domain.AppSettings
	validateErr error
	calls       []string
}

var _ driving.SettingsService = (*mockSettings)(nil)

func newMockSettings() *mockSettings {
	return &mockSettings{settings: domain.DefaultAppSettings()}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettings) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.calls = append(m.calls, "embedding:"+string(provider)+":"+model+":"+apiKey)
	m.settings.Embedding = domain.EmbeddingSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettings) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.calls = append(m.calls, "llm:"+string(provider)+":"+model+":"+apiKey)
	m.settings.LLM = domain.LLMSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettings) SetStorage(backend domain.StorageBackend, dsn string) error {
	m.calls = append(m.calls, "storage:"+string(backend)+":"+dsn)
	m.settings.Storage.Backend = backend
	m.settings.Storage.DSN = dsn
	return nil
}

func (m *mockSettings) SetWebhook(url string) error {
	m.calls = append(m.calls, "webhook:"+url)
	m.settings.Notify.WebhookURL = url
	return nil
}

func (m *mockSettings) Validate() error {
	return m.validateErr
}

// setTestServices installs s as the already-built services for one test.
func setTestServices(t *testing.T, s *Services) {
	t.Helper()
	services = s
	t.Cleanup(func() { services = nil })
}

func setTestSettings(t *testing.T, s driving.SettingsService) {
	t.Helper()
	prev := settingsService
	settingsService = s
	t.Cleanup(func() { settingsService = prev })
}

// execute runs the root command with args and returns everything printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), input, args...)
}

func executeContext(t *testing.T, ctx context.Context, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

