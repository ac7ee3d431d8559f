package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/contract-agent/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

// timeLayout is fixed-width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// defaultMaxConnections is used when the caller passes a non-positive pool size.
const defaultMaxConnections = 5

// Ensure Store implements the interfaces.
var (
	_ driven.DocumentStore  = (*Store)(nil)
	_ driven.ClauseSearcher = (*Store)(nil)
)

// Store is a SQLite-backed document store.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.contract-agent/data/contracts.db.
// maxConns caps open connections; zero selects the default of 5.
func NewStore(dataDir string, maxConns int) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".contract-agent", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "contracts.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if maxConns <= 0 {
		maxConns = defaultMaxConnections
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(content); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}
	return tx.Commit()
}

// ==================== Document Store ====================

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

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (title, content, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, doc.Title, doc.Content, float32SliceToBytes(doc.Embedding), string(metadataJSON), s.timestamp())
	if err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading document id: %w", err)
	}
	return id, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, embedding, metadata, created_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// FindDocumentByTitle returns the oldest document ID with the given title.
func (s *Store) FindDocumentByTitle(ctx context.Context, title string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE title = ? ORDER BY id LIMIT 1`, title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("finding document by title: %w", err)
	}
	return id, nil
}

// UpdateStatus sets metadata.status, enforcing the status lifecycle.
// The conditional UPDATE makes the check and the write a single statement.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, status)
	}

	if status.IsTerminal() {
		res, err := s.db.ExecContext(ctx, `
			UPDATE documents
			SET metadata = json_set(metadata, '$.status', ?)
			WHERE id = ? AND json_extract(metadata, '$.status') = ?
		`, string(status), id, string(domain.StatusProcessing))
		if err != nil {
			return fmt.Errorf("updating status: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			return nil
		}
	}

	// Nothing changed: the document is missing, already in this state,
	// or in a state that cannot move to status.
	var current sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT json_extract(metadata, '$.status') FROM documents WHERE id = ?", id,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	from := domain.Status(current.String)
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

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO contract_analyses (document_id, analysis_data, risk_report, created_at)
		SELECT id, ?, ?, ? FROM documents WHERE id = ?
	`, string(analysisJSON), report, s.timestamp(), documentID)
	if err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns one row per document and analysis pair, most recent
// document first. Documents without analyses appear once with a nil Analysis.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return []domain.HistoryEntry{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.created_at, json_extract(d.metadata, '$.status'),
		       a.analysis_data, a.risk_report
		FROM documents d
		LEFT JOIN contract_analyses a ON a.document_id = d.id
		ORDER BY d.created_at DESC, d.id DESC, a.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			entry        domain.HistoryEntry
			createdAt    string
			status       sql.NullString
			analysisJSON sql.NullString
			report       sql.NullString
		)
		if err := rows.Scan(&entry.DocumentID, &entry.Title, &createdAt, &status,
			&analysisJSON, &report); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entry.Status = domain.StatusFromMetadata(map[string]any{domain.MetaStatus: status.String})
		if analysisJSON.Valid {
			var analysis domain.Analysis
			if err := json.Unmarshal([]byte(analysisJSON.String), &analysis); err != nil {
				return nil, fmt.Errorf("unmarshaling analysis: %w", err)
			}
			entry.Analysis = &analysis
			entry.Report = report.String
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// ==================== Clause Searcher ====================

// EmbeddedDocuments returns every document that has an embedding.
func (s *Store) EmbeddedDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, embedding, metadata, created_at
		FROM documents
		WHERE embedding IS NOT NULL AND length(embedding) > 0
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
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
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// KeywordSearch scores documents by where the keywords occur.
// SQLite lower() folds ASCII only, so matching is ASCII case-insensitive.
func (s *Store) KeywordSearch(ctx context.Context, q driven.KeywordQuery) ([]domain.SimilarClause, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, created_at, score FROM (
			SELECT id, title, content, created_at,
				CASE
					WHEN ?1 != '' AND instr(lower(title), lower(?1)) > 0 THEN ?4
					WHEN ?1 != '' AND instr(lower(content), lower(?1)) > 0 THEN ?5
					WHEN ?2 != '' AND instr(lower(content), lower(?2)) > 0 THEN ?6
					ELSE 0
				END AS score
			FROM documents
			WHERE id != ?3
		)
		WHERE score > 0
		ORDER BY score DESC, created_at DESC, id DESC
		LIMIT ?7
	`, q.Primary, q.Secondary, q.ExcludeID,
		driven.ScoreTitlePrimary, driven.ScoreContentPrimary, driven.ScoreContentSecondary,
		limitArg(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	return scanClauses(rows)
}

// SubstringSearch returns the most recent documents containing pattern.
func (s *Store) SubstringSearch(
	ctx context.Context, pattern string, limit int, excludeID int64,
) ([]domain.SimilarClause, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, created_at, ?1
		FROM documents
		WHERE id != ?2
		  AND (instr(lower(title), lower(?3)) > 0 OR instr(lower(content), lower(?3)) > 0)
		ORDER BY created_at DESC, id DESC
		LIMIT ?4
	`, driven.ScoreBaseline, excludeID, pattern, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	defer rows.Close()

	return scanClauses(rows)
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", raw, err)
	}
	return t, nil
}

// limitArg maps a non-positive limit to SQLite's "no limit".
func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanDocument scans a single document row.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var embeddingBlob []byte
	var metadataJSON, createdAt string

	if err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &embeddingBlob,
		&metadataJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	doc.Status = domain.StatusFromMetadata(doc.Metadata)

	var err error
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

// scanClauses scans id, title, content, created_at and score columns.
func scanClauses(rows *sql.Rows) ([]domain.SimilarClause, error) {
	results := []domain.SimilarClause{}
	for rows.Next() {
		var c domain.SimilarClause
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Title, &c.Content, &createdAt, &c.SimilarityScore); err != nil {
			return nil, fmt.Errorf("scanning clause: %w", err)
		}
		var err error
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		results = append(results, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clauses: %w", err)
	}
	return results, nil
}
