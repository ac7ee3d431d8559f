package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

// testDSNEnv names a disposable database. Its tables are truncated.
const testDSNEnv = "TEST_POSTGRES_DSN"

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}

	ctx := context.Background()
	store, err := NewStore(ctx, dsn, 2)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	_, err = store.pool.Exec(ctx, "TRUNCATE contract_analyses, documents RESTART IDENTITY")
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return store
}

func createDoc(t *testing.T, store *Store, title, content string, embedding []float32, status domain.Status) int64 {
	t.Helper()
	meta := map[string]any{"source": "test"}
	if status != "" {
		meta[domain.MetaStatus] = string(status)
	}
	id, err := store.CreateDocument(context.Background(), domain.NewDocument{
		Title: title, Content: content, Embedding: embedding, Metadata: meta,
	})
	require.NoError(t, err)
	return id
}

func TestNewStore_RequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), " ", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewStore(context.Background(), "postgres://host:notaport/db", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError("op", pgx.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, mapError("op", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23503"})), domain.ErrNotFound)

	other := errors.New("connection reset")
	err := mapError("op", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "op: ")
}

func TestLimitArg(t *testing.T) {
	assert.Nil(t, limitArg(0))
	assert.Nil(t, limitArg(-3))
	require.NotNil(t, limitArg(4))
	assert.Equal(t, 4, *limitArg(4))
}

func TestStore_DocumentLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	id := createDoc(t, store, "Service Agreement", "The supplier shall", []float32{0.5, -1}, domain.StatusProcessing)

	doc, err := store.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Service Agreement", doc.Title)
	assert.Equal(t, []float32{0.5, -1}, doc.Embedding)
	assert.Equal(t, domain.StatusProcessing, doc.Status)

	require.NoError(t, store.UpdateStatus(ctx, id, domain.StatusCompleted))
	require.NoError(t, store.UpdateStatus(ctx, id, domain.StatusCompleted))
	assert.ErrorIs(t, store.UpdateStatus(ctx, id, domain.StatusFailed), domain.ErrInvalidTransition)
	assert.ErrorIs(t, store.UpdateStatus(ctx, 9999, domain.StatusFailed), domain.ErrNotFound)

	doc, err = store.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, "test", doc.Metadata["source"])

	_, err = store.GetDocument(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	found, err := store.FindDocumentByTitle(ctx, "Service Agreement")
	require.NoError(t, err)
	assert.Equal(t, id, found)

	_, err = store.FindDocumentByTitle(ctx, "Missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_History(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := createDoc(t, store, "First", "one", nil, domain.StatusCompleted)
	second := createDoc(t, store, "Second", "two", nil, domain.StatusProcessing)

	require.NoError(t, store.SaveAnalysis(ctx, first, domain.Analysis{RiskLevel: domain.RiskLow, Summary: "s"}, "report"))
	assert.ErrorIs(t, store.SaveAnalysis(ctx, 9999, domain.Analysis{}, ""), domain.ErrNotFound)

	entries, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[0].DocumentID)
	assert.Nil(t, entries[0].Analysis)
	assert.Equal(t, first, entries[1].DocumentID)
	require.NotNil(t, entries[1].Analysis)
	assert.Equal(t, domain.RiskLow, entries[1].Analysis.RiskLevel)
	assert.Equal(t, "report", entries[1].Report)
}

func TestStore_Search(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	content := createDoc(t, store, "Supply terms", "The LIABILITY cap applies", []float32{1, 0}, "")
	title := createDoc(t, store, "Liability schedule", "Nothing relevant", nil, "")
	secondary := createDoc(t, store, "Lease", "Indemnity obligations", nil, "")

	results, err := store.KeywordSearch(ctx, driven.KeywordQuery{Primary: "liability", Secondary: "indemnity", Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []int64{title, content, secondary}, []int64{results[0].ID, results[1].ID, results[2].ID})

	results, err = store.SubstringSearch(ctx, "liability", 5, title)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, content, results[0].ID)
	assert.InDelta(t, driven.ScoreBaseline, results[0].SimilarityScore, 1e-9)

	docs, err := store.EmbeddedDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, content, docs[0].ID)
}
