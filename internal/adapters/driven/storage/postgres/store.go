// Package postgres provides a PostgreSQL implementation of the document store
// backed by a pgx connection pool. Metadata and analyses are stored as JSONB
// and embeddings as REAL[].
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/contract-agent/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

const defaultMaxConnections = 5

// Ensure Store implements the interfaces.
var (
	_ driven.DocumentStore  = (*Store)(nil)
	_ driven.ClauseSearcher = (*Store)(nil)
)

// Store is a PostgreSQL-backed document store.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore connects to dsn, applies pending migrations and returns the store.
// maxConns caps the pool size; zero selects the default of 5.
func NewStore(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres DSN is required", domain.ErrInvalidInput)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing DSN: %w", domain.ErrInvalidInput, err)
	}
	if maxConns <= 0 {
		maxConns = defaultMaxConnections
	}
	cfg.MaxConns = int32(maxConns) //nolint:gosec // bounded by settings validation

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	s := &Store{pool: pool, now: time.Now}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// migrate applies every numbered .up.sql file above the recorded version.
// A session advisory lock serialises concurrent starters.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	const lockKey = 0x636f6e7472616374 // "contract"
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", int64(lockKey)); err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", int64(lockKey)) //nolint:errcheck

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := conn.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").
		Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= currentVersion {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

// CreateDocument inserts a document and returns its assigned ID.
func (s *Store) CreateDocument(ctx context.Context, doc domain.NewDocument) (int64, error) {
	meta := doc.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metadataJSON, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("marshalling metadata: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO documents (title, content, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		RETURNING id
	`, doc.Title, doc.Content, nullableVector(doc.Embedding), string(metadataJSON), s.now().UTC()).Scan(&id)
	if err != nil {
		return 0, mapError("inserting document", err)
	}
	return id, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, content, embedding, metadata, created_at
		FROM documents WHERE id = $1
	`, id)
	return scanDocument(row)
}

// FindDocumentByTitle returns the oldest document ID with the given title.
func (s *Store) FindDocumentByTitle(ctx context.Context, title string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM documents WHERE title = $1 ORDER BY id LIMIT 1`, title).Scan(&id)
	if err != nil {
		return 0, mapError("finding document by title", err)
	}
	return id, nil
}

// UpdateStatus sets metadata.status, enforcing the status lifecycle.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, status)
	}

	if status.IsTerminal() {
		tag, err := s.pool.Exec(ctx, `
			UPDATE documents
			SET metadata = jsonb_set(metadata, '{status}', to_jsonb($1::text))
			WHERE id = $2 AND metadata->>'status' = $3
		`, string(status), id, string(domain.StatusProcessing))
		if err != nil {
			return mapError("updating status", err)
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
	}

	var current *string
	err := s.pool.QueryRow(ctx, "SELECT metadata->>'status' FROM documents WHERE id = $1", id).Scan(&current)
	if err != nil {
		return mapError("reading status", err)
	}

	var from domain.Status
	if current != nil {
		from = domain.Status(*current)
	}
	if from == status {
		return nil
	}
	return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, from, status)
}

// SaveAnalysis appends an analysis record for a document.
func (s *Store) SaveAnalysis(ctx context.Context, documentID int64, analysis domain.Analysis, report string) error {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshalling analysis: %w", err)
	}

	// An unknown document fails the foreign key and maps to ErrNotFound.
	_, err = s.pool.Exec(ctx, `
		INSERT INTO contract_analyses (document_id, analysis_data, risk_report, created_at)
		VALUES ($1, $2::jsonb, $3, $4)
	`, documentID, string(analysisJSON), report, s.now().UTC())
	if err != nil {
		return mapError("inserting analysis", err)
	}
	return nil
}

// ListRecent returns one row per document and analysis pair, most recent
// document first. Documents without analyses appear once with a nil Analysis.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return []domain.HistoryEntry{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.title, d.created_at, d.metadata->>'status', a.analysis_data, a.risk_report
		FROM documents d
		LEFT JOIN contract_analyses a ON a.document_id = d.id
		ORDER BY d.created_at DESC, d.id DESC, a.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, mapError("querying history", err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			entry        domain.HistoryEntry
			status       *string
			analysisJSON []byte
			report       *string
		)
		if err := rows.Scan(&entry.DocumentID, &entry.Title, &entry.CreatedAt, &status,
			&analysisJSON, &report); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		if status != nil {
			entry.Status = domain.StatusFromMetadata(map[string]any{domain.MetaStatus: *status})
		}
		if analysisJSON != nil {
			var analysis domain.Analysis
			if err := json.Unmarshal(analysisJSON, &analysis); err != nil {
				return nil, fmt.Errorf("unmarshaling analysis: %w", err)
			}
			entry.Analysis = &analysis
			if report != nil {
				entry.Report = *report
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterating history", err)
	}
	return entries, nil
}

// EmbeddedDocuments returns every document that has an embedding.
func (s *Store) EmbeddedDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, content, embedding, metadata, created_at
		FROM documents
		WHERE cardinality(embedding) > 0
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, mapError("querying embeddings", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterating documents", err)
	}
	return docs, nil
}

// KeywordSearch scores documents by where the keywords occur.
func (s *Store) KeywordSearch(ctx context.Context, q driven.KeywordQuery) ([]domain.SimilarClause, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, content, created_at, score FROM (
			SELECT id, title, content, created_at,
				CASE
					WHEN $1::text <> '' AND strpos(lower(title), lower($1::text)) > 0 THEN $4::float8
					WHEN $1::text <> '' AND strpos(lower(content), lower($1::text)) > 0 THEN $5::float8
					WHEN $2::text <> '' AND strpos(lower(content), lower($2::text)) > 0 THEN $6::float8
					ELSE 0
				END AS score
			FROM documents
			WHERE id <> $3
		) scored
		WHERE score > 0
		ORDER BY score DESC, created_at DESC, id DESC
		LIMIT $7
	`, q.Primary, q.Secondary, q.ExcludeID,
		driven.ScoreTitlePrimary, driven.ScoreContentPrimary, driven.ScoreContentSecondary,
		limitArg(q.Limit))
	if err != nil {
		return nil, mapError("keyword search", err)
	}
	return collectClauses(rows)
}

// SubstringSearch returns the most recent documents containing pattern.
func (s *Store) SubstringSearch(
	ctx context.Context, pattern string, limit int, excludeID int64,
) ([]domain.SimilarClause, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, content, created_at, $1::float8
		FROM documents
		WHERE id <> $2
		  AND (strpos(lower(title), lower($3::text)) > 0 OR strpos(lower(content), lower($3::text)) > 0)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, driven.ScoreBaseline, excludeID, pattern, limitArg(limit))
	if err != nil {
		return nil, mapError("substring search", err)
	}
	return collectClauses(rows)
}

// limitArg maps a non-positive limit to no limit; LIMIT NULL means all rows.
func limitArg(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

func nullableVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	return v
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Embedding,
		&doc.Metadata, &doc.CreatedAt); err != nil {
		return nil, mapError("scanning document", err)
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	doc.Status = domain.StatusFromMetadata(doc.Metadata)
	doc.CreatedAt = doc.CreatedAt.UTC()
	return &doc, nil
}

func collectClauses(rows pgx.Rows) ([]domain.SimilarClause, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SimilarClause, error) {
		var c domain.SimilarClause
		err := row.Scan(&c.ID, &c.Title, &c.Content, &c.CreatedAt, &c.SimilarityScore)
		c.CreatedAt = c.CreatedAt.UTC()
		return c, err
	})
	if err != nil {
		return nil, mapError("scanning clauses", err)
	}
	if results == nil {
		results = []domain.SimilarClause{}
	}
	return results, nil
}

// mapError translates driver failures into domain errors.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
