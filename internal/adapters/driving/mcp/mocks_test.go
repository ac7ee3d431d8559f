package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
)

// mockPipelineService is a mock implementation of driving.PipelineService.
type mockPipelineService struct {
	result  *domain.ProcessingResult
	history []domain.HistoryEntry
	docs    map[int64]*domain.Document
	err     error

	gotTitle    string
	gotContent  string
	gotMetadata map[string]any
	gotLimit    int
}

var _ driving.PipelineService = (*mockPipelineService)(nil)

func (m *mockPipelineService) ProcessDocument(
	_ context.Context, title, content string, metadata map[string]any,
) (*domain.ProcessingResult, error) {
	m.gotTitle, m.gotContent, m.gotMetadata = title, content, metadata
	return m.result, m.err
}

func (m *mockPipelineService) ProcessDocumentWithProgress(
	ctx context.Context, title, content string, metadata map[string]any, _ domain.ProgressFunc,
) (*domain.ProcessingResult, error) {
	return m.ProcessDocument(ctx, title, content, metadata)
}

func (m *mockPipelineService) ListHistory(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	m.gotLimit = limit
	return m.history, m.err
}

func (m *mockPipelineService) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results []domain.SimilarClause
	err     error

	gotQuery    string
	gotLimit    int
	gotMinScore float64
}

var _ driving.RetrievalService = (*mockRetrievalService)(nil)

func (m *mockRetrievalService) FindRelated(
	_ context.Context, query string, limit int, minScore float64,
) ([]domain.SimilarClause, error) {
	m.gotQuery, m.gotLimit, m.gotMinScore = query, limit, minScore
	return m.results, m.err
}

var testTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
