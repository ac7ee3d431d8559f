package driven

import (
	"context"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// ClauseSearcher exposes the candidate lookups used by the retrieval tiers.
// Stores implement it alongside DocumentStore.
type ClauseSearcher interface {
	// EmbeddedDocuments returns every stored document that has an embedding.
	EmbeddedDocuments(ctx context.Context) ([]domain.Document, error)

	// KeywordSearch returns documents matching either keyword, scored by
	// where the match occurs, ordered by score then recency.
	KeywordSearch(ctx context.Context, q KeywordQuery) ([]domain.SimilarClause, error)

	// SubstringSearch returns documents whose title or content contains
	// pattern (case-insensitive), most recent first.
	SubstringSearch(ctx context.Context, pattern string, limit int, excludeID int64) ([]domain.SimilarClause, error)
}

// KeywordQuery parameterises ClauseSearcher.KeywordSearch.
type KeywordQuery struct {
	// Primary is matched against title (0.9) and content (0.8).
	Primary string

	// Secondary is matched against content (0.7). Empty disables it.
	Secondary string

	// Limit caps the number of rows.
	Limit int

	// ExcludeID omits one document from the results. Zero excludes nothing.
	ExcludeID int64
}

// Keyword tier score buckets.
const (
	ScoreTitlePrimary     = 0.9
	ScoreContentPrimary   = 0.8
	ScoreContentSecondary = 0.7
	ScoreBaseline         = 0.5
)
