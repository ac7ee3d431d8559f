package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contract-agent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite clips to zero", []float32{1, 0}, []float32{-1, 0}, 0},
		{"45 degrees", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestSortClauses(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clauses := []domain.SimilarClause{
		{ID: 1, SimilarityScore: 0.8, CreatedAt: base},
		{ID: 2, SimilarityScore: 0.9, CreatedAt: base},
		{ID: 3, SimilarityScore: 0.8, CreatedAt: base.Add(time.Hour)},
		{ID: 4, SimilarityScore: 0.8, CreatedAt: base},
	}

	SortClauses(clauses)

	ids := make([]int64, len(clauses))
	for i, c := range clauses {
		ids[i] = c.ID
	}
	assert.Equal(t, []int64{2, 3, 4, 1}, ids)
}

func createEmbedded(t *testing.T, store *memory.DocumentStore, title string, vec []float32) int64 {
	t.Helper()
	id, err := store.CreateDocument(context.Background(), domain.NewDocument{
		Title:     title,
		Content:   title + " content",
		Embedding: vec,
	})
	require.NoError(t, err)
	return id
}

func TestSemanticRanker_Rank(t *testing.T) {
	store := memory.NewDocumentStore()
	near := createEmbedded(t, store, "close", []float32{1, 0.1, 0})
	exact := createEmbedded(t, store, "exact", []float32{1, 0, 0})
	createEmbedded(t, store, "far", []float32{0, 1, 0})
	createEmbedded(t, store, "other model", []float32{1, 0})
	self := createEmbedded(t, store, "self", []float32{1, 0, 0})

	ranker := NewSemanticRanker(&mockEmbedder{vector: []float32{1, 0, 0}}, store)
	assert.Equal(t, TierSemantic, ranker.Name())

	results, err := ranker.Rank(context.Background(), RankQuery{
		Text: "query", Limit: 5, MinScore: 0.8, ExcludeID: self,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, exact, results[0].ID)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)
	assert.Equal(t, near, results[1].ID)
	assert.Equal(t, TierSemantic, results[1].Tier)

	limited, err := ranker.Rank(context.Background(), RankQuery{Text: "query", Limit: 1, MinScore: 0})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSemanticRanker_NoComparableEmbeddings(t *testing.T) {
	store := memory.NewDocumentStore()
	createEmbedded(t, store, "two dims", []float32{1, 0})

	ranker := NewSemanticRanker(&mockEmbedder{vector: []float32{1, 0, 0}}, store)
	_, err := ranker.Rank(context.Background(), RankQuery{Text: "q", Limit: 5, MinScore: 0.8})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestSemanticRanker_EmbeddingFails(t *testing.T) {
	store := memory.NewDocumentStore()
	gateway := NewGateway(&mockEmbedder{err: errBoom}, nil, time.Second)

	_, err := NewSemanticRanker(gateway, store).Rank(context.Background(), RankQuery{Text: "q", Limit: 5})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestKeywordRanker_Rank(t *testing.T) {
	store := memory.NewDocumentStore()
	ctx := context.Background()

	hit, err := store.CreateDocument(ctx, domain.NewDocument{Title: "Liability cap", Content: "x"})
	require.NoError(t, err)
	_, err = store.CreateDocument(ctx, domain.NewDocument{Title: "Other", Content: "nothing"})
	require.NoError(t, err)

	results, err := NewKeywordRanker(store).Rank(ctx, RankQuery{Text: "The liability clause", Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, hit, results[0].ID)
	assert.Equal(t, TierKeyword, results[0].Tier)
	assert.InDelta(t, 0.9, results[0].SimilarityScore, 1e-9)
}

func TestRankers_NilSearcher(t *testing.T) {
	q := RankQuery{Text: "q", Limit: 5}

	_, err := NewKeywordRanker(nil).Rank(context.Background(), q)
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)

	_, err = NewSubstringRanker(nil).Rank(context.Background(), q)
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)

	_, err = NewSemanticRanker(nil, nil).Rank(context.Background(), q)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestSubstringRanker_Rank(t *testing.T) {
	store := memory.NewDocumentStore()
	ctx := context.Background()

	hit, err := store.CreateDocument(ctx, domain.NewDocument{Title: "A", Content: "The Consultant Shall provide services"})
	require.NoError(t, err)

	results, err := NewSubstringRanker(store).Rank(ctx, RankQuery{Text: "consultant shall", Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, hit, results[0].ID)
	assert.Equal(t, TierSubstring, results[0].Tier)
	assert.InDelta(t, 0.5, results[0].SimilarityScore, 1e-9)
}
