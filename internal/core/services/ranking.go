package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

// Tier names reported on SimilarClause.Tier.
const (
	TierSemantic  = "semantic"
	TierKeyword   = "keyword"
	TierSubstring = "substring"
)

// Query prefix bounds used when a tier falls back to raw text.
const (
	primaryPrefixRunes   = 20
	secondaryPrefixRunes = 40
	substringPrefixRunes = 50
)

// RankQuery is the normalised input handed to every Ranker.
type RankQuery struct {
	// Text is the query text. Never blank.
	Text string

	// Limit is already clamped to [1,50].
	Limit int

	// MinScore is already clamped to [0,1].
	MinScore float64

	// ExcludeID omits one document. Zero excludes nothing.
	ExcludeID int64
}

// Ranker is one strategy in the retrieval fallback chain.
// Rank returns an error when the strategy cannot run at all; an empty
// result is a valid answer.
type Ranker interface {
	Name() string
	Rank(ctx context.Context, q RankQuery) ([]domain.SimilarClause, error)
}

// queryEmbedder is satisfied by Gateway.
type queryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SemanticRanker ranks stored documents by cosine similarity to the query embedding.
type SemanticRanker struct {
	embedder queryEmbedder
	searcher driven.ClauseSearcher
}

// NewSemanticRanker creates a semantic ranker.
func NewSemanticRanker(embedder queryEmbedder, searcher driven.ClauseSearcher) *SemanticRanker {
	return &SemanticRanker{embedder: embedder, searcher: searcher}
}

// Name returns the tier name.
func (r *SemanticRanker) Name() string { return TierSemantic }

// Rank embeds the query and returns documents scoring at least q.MinScore.
// It fails with domain.ErrVectorIndexUnavailable when no stored embedding
// has the query's dimensionality.
func (r *SemanticRanker) Rank(ctx context.Context, q RankQuery) ([]domain.SimilarClause, error) {
	if r.embedder == nil || r.searcher == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	queryVec, err := r.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	docs, err := r.searcher.EmbeddedDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	comparable := 0
	var results []domain.SimilarClause
	for i := range docs {
		doc := &docs[i]
		if doc.ID == q.ExcludeID || len(doc.Embedding) != len(queryVec) {
			continue
		}
		comparable++

		score := CosineSimilarity(queryVec, doc.Embedding)
		if score < q.MinScore {
			continue
		}
		results = append(results, domain.SimilarClause{
			ID:              doc.ID,
			Title:           doc.Title,
			Content:         doc.Content,
			SimilarityScore: score,
			CreatedAt:       doc.CreatedAt,
			Tier:            TierSemantic,
		})
	}

	if comparable == 0 {
		return nil, fmt.Errorf("%w: no %d-dimension embeddings stored",
			domain.ErrVectorIndexUnavailable, len(queryVec))
	}

	SortClauses(results)
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// KeywordRanker scores documents by where the query's top keywords occur.
type KeywordRanker struct {
	searcher driven.ClauseSearcher
}

// NewKeywordRanker creates a keyword ranker.
func NewKeywordRanker(searcher driven.ClauseSearcher) *KeywordRanker {
	return &KeywordRanker{searcher: searcher}
}

// Name returns the tier name.
func (r *KeywordRanker) Name() string { return TierKeyword }

// Rank matches the first keyword against titles and content and the second
// against content. Without keywords, leading slices of the query stand in.
func (r *KeywordRanker) Rank(ctx context.Context, q RankQuery) ([]domain.SimilarClause, error) {
	if r.searcher == nil {
		return nil, domain.ErrSearchUnavailable
	}

	primary, secondary := KeywordTerms(q.Text)
	if primary == "" {
		return []domain.SimilarClause{}, nil
	}

	results, err := r.searcher.KeywordSearch(ctx, driven.KeywordQuery{
		Primary:   primary,
		Secondary: secondary,
		Limit:     q.Limit,
		ExcludeID: q.ExcludeID,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	for i := range results {
		results[i].Tier = TierKeyword
	}
	return results, nil
}

// KeywordTerms picks the primary and secondary search terms for a query.
func KeywordTerms(text string) (primary, secondary string) {
	keywords := ExtractKeywords(text)

	if len(keywords) > 0 {
		primary = keywords[0]
	} else {
		primary = runeSlice(text, 0, primaryPrefixRunes)
	}
	if len(keywords) > 1 {
		secondary = keywords[1]
	} else {
		secondary = runeSlice(text, primaryPrefixRunes, secondaryPrefixRunes)
	}
	return strings.TrimSpace(primary), strings.TrimSpace(secondary)
}

// SubstringRanker is the last-resort tier: a plain substring match on a
// bounded prefix of the query.
type SubstringRanker struct {
	searcher driven.ClauseSearcher
}

// NewSubstringRanker creates a substring ranker.
func NewSubstringRanker(searcher driven.ClauseSearcher) *SubstringRanker {
	return &SubstringRanker{searcher: searcher}
}

// Name returns the tier name.
func (r *SubstringRanker) Name() string { return TierSubstring }

// Rank returns the most recent documents containing the query prefix.
func (r *SubstringRanker) Rank(ctx context.Context, q RankQuery) ([]domain.SimilarClause, error) {
	if r.searcher == nil {
		return nil, domain.ErrSearchUnavailable
	}

	pattern := strings.TrimSpace(runeSlice(q.Text, 0, substringPrefixRunes))
	if pattern == "" {
		return []domain.SimilarClause{}, nil
	}

	results, err := r.searcher.SubstringSearch(ctx, pattern, q.Limit, q.ExcludeID)
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	for i := range results {
		results[i].Tier = TierSubstring
		if results[i].SimilarityScore == 0 {
			results[i].SimilarityScore = driven.ScoreBaseline
		}
	}
	return results, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, clipped
// to [0,1]. Mismatched or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(0, math.Min(1, sim))
}

// SortClauses orders by score descending, then newest first, then highest ID.
func SortClauses(clauses []domain.SimilarClause) {
	sort.SliceStable(clauses, func(i, j int) bool {
		a, b := clauses[i], clauses[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
