package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interfaces.
var (
	_ driven.DocumentStore  = (*DocumentStore)(nil)
	_ driven.ClauseSearcher = (*DocumentStore)(nil)
)

type analysisRecord struct {
	id       int64
	analysis domain.Analysis
	report   string
	created  time.Time
}

// DocumentStore is an in-memory implementation of driven.DocumentStore and
// driven.ClauseSearcher. It is used by tests and by the "memory" backend.
type DocumentStore struct {
	mu         sync.RWMutex
	documents  map[int64]domain.Document
	analyses   map[int64][]analysisRecord
	nextID     int64
	nextRecord int64
	now        func() time.Time
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[int64]domain.Document),
		analyses:  make(map[int64][]analysisRecord),
		now:       time.Now,
	}
}

// CreateDocument stores a document and assigns the next ID.
func (s *DocumentStore) CreateDocument(_ context.Context, doc domain.NewDocument) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	meta := maps.Clone(doc.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	s.documents[s.nextID] = domain.Document{
		ID:        s.nextID,
		Title:     doc.Title,
		Content:   doc.Content,
		Embedding: slices.Clone(doc.Embedding),
		Metadata:  meta,
		Status:    domain.StatusFromMetadata(meta),
		CreatedAt: s.now().UTC(),
	}
	return s.nextID, nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyDocument(&doc), nil
}

// FindDocumentByTitle returns the oldest document ID with the given title.
func (s *DocumentStore) FindDocumentByTitle(_ context.Context, title string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found int64
	for id, doc := range s.documents {
		if doc.Title == title && (found == 0 || id < found) {
			found = id
		}
	}
	if found == 0 {
		return 0, domain.ErrNotFound
	}
	return found, nil
}

// UpdateStatus sets metadata.status, enforcing the status lifecycle.
func (s *DocumentStore) UpdateStatus(_ context.Context, id int64, status domain.Status) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.Status == status {
		return nil
	}
	if !doc.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, doc.Status, status)
	}

	doc.Metadata = maps.Clone(doc.Metadata)
	doc.Metadata[domain.MetaStatus] = string(status)
	doc.Status = status
	s.documents[id] = doc
	return nil
}

// SaveAnalysis appends an analysis record for a document.
func (s *DocumentStore) SaveAnalysis(_ context.Context, documentID int64, analysis domain.Analysis, report string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[documentID]; !ok {
		return domain.ErrNotFound
	}
	s.nextRecord++
	s.analyses[documentID] = append(s.analyses[documentID], analysisRecord{
		id:       s.nextRecord,
		analysis: copyAnalysis(analysis),
		report:   report,
		created:  s.now().UTC(),
	})
	return nil
}

// ListRecent returns one row per document and analysis pair, most recent
// document first. Documents without analyses appear once with a nil Analysis.
func (s *DocumentStore) ListRecent(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return []domain.HistoryEntry{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.sortedDocuments()
	entries := make([]domain.HistoryEntry, 0, min(limit, len(docs)))
	for _, doc := range docs {
		records := s.analyses[doc.ID]
		if len(records) == 0 {
			entries = append(entries, historyEntry(doc, nil))
		}
		for i := len(records) - 1; i >= 0; i-- {
			entries = append(entries, historyEntry(doc, &records[i]))
		}
		if len(entries) >= limit {
			return entries[:limit], nil
		}
	}
	return entries, nil
}

// Ping always succeeds.
func (s *DocumentStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *DocumentStore) Close() error {
	return nil
}

// EmbeddedDocuments returns every document that has an embedding.
func (s *DocumentStore) EmbeddedDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.sortedDocuments() {
		if len(doc.Embedding) > 0 {
			docs = append(docs, *copyDocument(&doc))
		}
	}
	return docs, nil
}

// KeywordSearch scores documents by where the keywords occur.
func (s *DocumentStore) KeywordSearch(_ context.Context, q driven.KeywordQuery) ([]domain.SimilarClause, error) {
	primary := strings.ToLower(q.Primary)
	secondary := strings.ToLower(q.Secondary)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.SimilarClause
	for _, doc := range s.documents {
		if doc.ID == q.ExcludeID {
			continue
		}
		title := strings.ToLower(doc.Title)
		content := strings.ToLower(doc.Content)

		var score float64
		switch {
		case primary != "" && strings.Contains(title, primary):
			score = driven.ScoreTitlePrimary
		case primary != "" && strings.Contains(content, primary):
			score = driven.ScoreContentPrimary
		case secondary != "" && strings.Contains(content, secondary):
			score = driven.ScoreContentSecondary
		default:
			continue
		}
		results = append(results, clause(doc, score))
	}

	sortClauses(results)
	return truncate(results, q.Limit), nil
}

// SubstringSearch returns the most recent documents containing pattern.
func (s *DocumentStore) SubstringSearch(
	_ context.Context, pattern string, limit int, excludeID int64,
) ([]domain.SimilarClause, error) {
	needle := strings.ToLower(pattern)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.SimilarClause
	for _, doc := range s.sortedDocuments() {
		if doc.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(doc.Title), needle) ||
			strings.Contains(strings.ToLower(doc.Content), needle) {
			results = append(results, clause(doc, driven.ScoreBaseline))
		}
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// sortedDocuments returns documents newest first. Caller must hold the lock.
func (s *DocumentStore) sortedDocuments() []domain.Document {
	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
	return docs
}

func historyEntry(doc domain.Document, record *analysisRecord) domain.HistoryEntry {
	entry := domain.HistoryEntry{
		DocumentID: doc.ID,
		Title:      doc.Title,
		CreatedAt:  doc.CreatedAt,
		Status:     doc.Status,
	}
	if record != nil {
		analysis := copyAnalysis(record.analysis)
		entry.Analysis = &analysis
		entry.Report = record.report
	}
	return entry
}

func clause(doc domain.Document, score float64) domain.SimilarClause {
	return domain.SimilarClause{
		ID:              doc.ID,
		Title:           doc.Title,
		Content:         doc.Content,
		SimilarityScore: score,
		CreatedAt:       doc.CreatedAt,
	}
}

func sortClauses(clauses []domain.SimilarClause) {
	sort.Slice(clauses, func(i, j int) bool {
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

func truncate(clauses []domain.SimilarClause, limit int) []domain.SimilarClause {
	if limit > 0 && len(clauses) > limit {
		return clauses[:limit]
	}
	return clauses
}

func copyDocument(doc *domain.Document) *domain.Document {
	c := *doc
	c.Embedding = slices.Clone(doc.Embedding)
	c.Metadata = maps.Clone(doc.Metadata)
	return &c
}

func copyAnalysis(a domain.Analysis) domain.Analysis {
	a.Risks = slices.Clone(a.Risks)
	a.Compliance = slices.Clone(a.Compliance)
	a.Recommendations = slices.Clone(a.Recommendations)
	return a
}
