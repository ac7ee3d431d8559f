package driven

import (
	"context"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// DocumentStore persists documents, their status and their analyses.
// Every operation is atomic for a single row; no operation spans
// document creation and a later status update.
type DocumentStore interface {
	// CreateDocument inserts a document and returns its assigned ID.
	CreateDocument(ctx context.Context, doc domain.NewDocument) (int64, error)

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// FindDocumentByTitle returns the ID of the oldest document with exactly
	// this title. Returns domain.ErrNotFound if there is none.
	FindDocumentByTitle(ctx context.Context, title string) (int64, error)

	// UpdateStatus sets metadata.status on a document.
	// Writing the same status twice is a no-op.
	UpdateStatus(ctx context.Context, id int64, status domain.Status) error

	// SaveAnalysis appends an analysis record for a document.
	SaveAnalysis(ctx context.Context, documentID int64, analysis domain.Analysis, report string) error

	// ListRecent returns history rows, most recent document first.
	ListRecent(ctx context.Context, limit int) ([]domain.HistoryEntry, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}
