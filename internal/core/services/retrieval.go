package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
	"github.com/custodia-labs/contract-agent/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService finds previously stored contracts related to a query by
// trying each Ranker in order until one can run.
type RetrievalService struct {
	rankers []Ranker
}

// NewRetrievalService creates a retrieval service over an explicit tier order.
func NewRetrievalService(rankers ...Ranker) *RetrievalService {
	return &RetrievalService{rankers: rankers}
}

// NewTieredRetrieval wires the standard semantic, keyword then substring chain.
// Each store query is bounded by queryTimeout; zero selects the default
// store timeout.
func NewTieredRetrieval(
	embedder queryEmbedder, searcher driven.ClauseSearcher, queryTimeout time.Duration,
) *RetrievalService {
	if searcher != nil {
		searcher = newBoundedSearcher(searcher, queryTimeout)
	}
	return NewRetrievalService(
		NewSemanticRanker(embedder, searcher),
		NewKeywordRanker(searcher),
		NewSubstringRanker(searcher),
	)
}

// FindRelated returns up to limit stored contracts related to query.
func (s *RetrievalService) FindRelated(
	ctx context.Context, query string, limit int, minScore float64,
) ([]domain.SimilarClause, error) {
	return s.FindRelatedExcluding(ctx, query, limit, minScore, 0)
}

// FindRelatedExcluding is FindRelated with one document ID left out of the
// candidates. Limit and score are clamped, never rejected. A blank query
// yields an empty result. When every tier fails the error wraps
// domain.ErrRetrievalDegraded and each tier's cause.
func (s *RetrievalService) FindRelatedExcluding(
	ctx context.Context, query string, limit int, minScore float64, excludeID int64,
) ([]domain.SimilarClause, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.SimilarClause{}, nil
	}

	q := RankQuery{
		Text:      query,
		Limit:     domain.ClampLimit(limit, domain.DefaultRelatedLimit, domain.MaxRelatedLimit),
		MinScore:  domain.ClampScore(minScore),
		ExcludeID: excludeID,
	}

	var errs []error
	for _, ranker := range s.rankers {
		results, err := ranker.Rank(ctx, q)
		if err == nil {
			if len(results) > q.Limit {
				results = results[:q.Limit]
			}
			if results == nil {
				results = []domain.SimilarClause{}
			}
			logger.Debug("Retrieval: %s tier returned %d results", ranker.Name(), len(results))
			return results, nil
		}

		logger.Debug("Retrieval: %s tier unavailable: %v", ranker.Name(), err)
		errs = append(errs, fmt.Errorf("%s: %w", ranker.Name(), err))

		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, ctxErr)
			break
		}
	}

	if len(errs) == 0 {
		errs = append(errs, domain.ErrSearchUnavailable)
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalDegraded, errors.Join(errs...))
}

// boundedSearcher applies a deadline to every ClauseSearcher call.
type boundedSearcher struct {
	next    driven.ClauseSearcher
	timeout time.Duration
}

func newBoundedSearcher(next driven.ClauseSearcher, timeout time.Duration) *boundedSearcher {
	if timeout <= 0 {
		timeout = domain.DefaultPipelineSettings().StoreTimeout
	}
	return &boundedSearcher{next: next, timeout: timeout}
}

func (b *boundedSearcher) EmbeddedDocuments(ctx context.Context) ([]domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.EmbeddedDocuments(ctx)
}

func (b *boundedSearcher) KeywordSearch(ctx context.Context, q driven.KeywordQuery) ([]domain.SimilarClause, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.KeywordSearch(ctx, q)
}

func (b *boundedSearcher) SubstringSearch(
	ctx context.Context, pattern string, limit int, excludeID int64,
) ([]domain.SimilarClause, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.SubstringSearch(ctx, pattern, limit, excludeID)
}
