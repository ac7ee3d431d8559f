package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/contract-agent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

var errBoom = errors.New("boom")

// mockEmbedder implements driven.EmbeddingService.
type mockEmbedder struct {
	vector []float32
	err    error
	calls  int
	mu     sync.Mutex
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]float32, len(m.vector))
	copy(out, m.vector)
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return len(m.vector) }
func (m *mockEmbedder) ModelName() string          { return "mock-embed" }
func (m *mockEmbedder) Ping(context.Context) error { return m.err }
func (m *mockEmbedder) Close() error               { return nil }

// mockLLM implements driven.LLMService with a scripted response.
type mockLLM struct {
	mu      sync.Mutex
	respond func(ctx context.Context, prompt string) (string, error)
	prompts []string
	opts    []driven.GenerateOptions
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()
	return m.respond(ctx, prompt)
}

func (m *mockLLM) ModelName() string          { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// staticLLM answers analysis prompts with analysisJSON and everything else with report.
func staticLLM(analysisJSON, report string) *mockLLM {
	return &mockLLM{respond: func(_ context.Context, prompt string) (string, error) {
		if isAnalysisPrompt(prompt) {
			return analysisJSON, nil
		}
		return report, nil
	}}
}

// hangingLLM blocks until the call's deadline.
func hangingLLM() *mockLLM {
	return &mockLLM{respond: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
}

// unreachableLLM fails immediately as if the host refused the connection.
func unreachableLLM() *mockLLM {
	return &mockLLM{respond: func(context.Context, string) (string, error) {
		return "", errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")
	}}
}

func isAnalysisPrompt(prompt string) bool {
	return strings.Contains(prompt, "Contract to analyze")
}

const healthyAnalysisResponse = `Here is the analysis:
{
  "riskLevel": "High",
  "risks": ["Unlimited liability {uncapped}"],
  "compliance": ["GDPR data processing terms missing"],
  "recommendations": ["Cap liability at fees paid"],
  "summary": "High risk licence."
}
Let me know if you need more.`

// recordingStore wraps the memory store with failure injection and a log
// of successful status writes.
type recordingStore struct {
	*memory.DocumentStore

	mu           sync.Mutex
	createErr    error
	saveErr      error
	statusErr    map[domain.Status]error
	statusWrites []domain.Status
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		DocumentStore: memory.NewDocumentStore(),
		statusErr:     map[domain.Status]error{},
	}
}

func (s *recordingStore) CreateDocument(ctx context.Context, doc domain.NewDocument) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	return s.DocumentStore.CreateDocument(ctx, doc)
}

func (s *recordingStore) SaveAnalysis(ctx context.Context, id int64, a domain.Analysis, report string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.DocumentStore.SaveAnalysis(ctx, id, a, report)
}

func (s *recordingStore) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	s.mu.Lock()
	injected := s.statusErr[status]
	s.mu.Unlock()
	if injected != nil {
		return injected
	}
	if err := s.DocumentStore.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.mu.Lock()
	s.statusWrites = append(s.statusWrites, status)
	s.mu.Unlock()
	return nil
}

func (s *recordingStore) writes() []domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Status(nil), s.statusWrites...)
}

// mockNotifier records notifications.
type mockNotifier struct {
	mu   sync.Mutex
	err  error
	sent []driven.Notification
}

func (n *mockNotifier) Notify(_ context.Context, msg driven.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

// failingFinder is a relatedFinder that always errors.
type failingFinder struct{ err error }

func (f failingFinder) FindRelatedExcluding(context.Context, string, int, float64, int64) ([]domain.SimilarClause, error) {
	return nil, f.err
}

// testTimeouts keeps generation bounds short so timeout paths run fast.
func testTimeouts() domain.PipelineSettings {
	return domain.PipelineSettings{
		EmbedTimeout:    time.Second,
		AnalysisTimeout: 50 * time.Millisecond,
		ReportTimeout:   50 * time.Millisecond,
		StoreTimeout:    time.Second,
		NotifyTimeout:   time.Second,
	}
}

// pipelineFixture bundles a pipeline with its collaborators.
type pipelineFixture struct {
	store    *recordingStore
	embedder *mockEmbedder
	llm      *mockLLM
	notifier *mockNotifier
	pipeline *PipelineService
}

func newPipelineFixture(llm *mockLLM) *pipelineFixture {
	f := &pipelineFixture{
		store:    newRecordingStore(),
		embedder: &mockEmbedder{vector: []float32{1, 0, 0}},
		llm:      llm,
		notifier: &mockNotifier{},
	}
	f.pipeline = f.build(nil)
	return f
}

// build wires the pipeline. A nil finder selects the standard tiers.
func (f *pipelineFixture) build(finder relatedFinder) *PipelineService {
	timeouts := testTimeouts()
	gateway := NewGateway(f.embedder, f.llm, timeouts.EmbedTimeout)
	if finder == nil {
		finder = NewTieredRetrieval(gateway, f.store, timeouts.StoreTimeout)
	}
	analysis := NewAnalysisService(gateway, nil, timeouts.AnalysisTimeout, timeouts.ReportTimeout)
	return NewPipelineService(f.store, gateway, finder, analysis, f.notifier, timeouts)
}
