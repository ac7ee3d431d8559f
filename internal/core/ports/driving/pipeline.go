package driving

import (
	"context"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// PipelineService runs contract analysis for external actors (CLI, MCP).
type PipelineService interface {
	// ProcessDocument ingests a contract and runs the full analysis pipeline.
	// The created document always ends in a terminal status.
	ProcessDocument(ctx context.Context, title, content string, metadata map[string]any) (*domain.ProcessingResult, error)

	// ProcessDocumentWithProgress is ProcessDocument with a stage observer.
	// progress may be nil.
	ProcessDocumentWithProgress(
		ctx context.Context, title, content string, metadata map[string]any, progress domain.ProgressFunc,
	) (*domain.ProcessingResult, error)

	// ListHistory returns recent analyses, most recent first.
	// The limit is clamped to [1,100]; zero selects the default of 10.
	ListHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error)

	// GetDocument returns a stored document.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)
}

// RetrievalService finds documents related to a query.
type RetrievalService interface {
	// FindRelated returns up to limit related documents, most relevant first.
	FindRelated(ctx context.Context, query string, limit int, minScore float64) ([]domain.SimilarClause, error)
}

// HealthService reports connectivity of the configured collaborators.
type HealthService interface {
	// Check pings every collaborator and reports the outcome per component.
	Check(ctx context.Context) []ComponentHealth
}

// ComponentHealth is the reachability of one collaborator.
type ComponentHealth struct {
	// Name identifies the component (e.g., "embedding", "llm", "store").
	Name string

	// Detail describes the backing implementation, such as a model name.
	Detail string

	// Err is nil when the component is reachable.
	Err error
}

// SeedService installs the bundled reference contracts so retrieval has
// something to compare new contracts against.
type SeedService interface {
	// SeedSamples stores each sample contract whose title is not already
	// present. Contracts that cannot be embedded are skipped, not fatal.
	SeedSamples(ctx context.Context) []domain.SeedOutcome
}
