package domain

import "time"

// Metadata keys written by the pipeline.
const (
	// MetaStatus holds the document Status.
	MetaStatus = "status"

	// MetaProcessedAt is the RFC3339 timestamp at which ingestion started.
	MetaProcessedAt = "processedAt"

	// MetaRunID correlates a document with the pipeline run that created it.
	MetaRunID = "runId"
)

// Status is the processing lifecycle state of a Document.
type Status string

// Document statuses.
const (
	// StatusProcessing is set at ingestion.
	StatusProcessing Status = "processing"

	// StatusCompleted is the terminal state of a successful run.
	StatusCompleted Status = "completed"

	// StatusFailed is the terminal state of a run that could not finish.
	StatusFailed Status = "failed"
)

// IsValid returns true if the status is recognised.
func (s Status) IsValid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for completed and failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a valid lifecycle step.
// Only processing may move, and only into a terminal state. Writing the same
// terminal state again is allowed so that status writes stay idempotent.
func (s Status) CanTransitionTo(next Status) bool {
	if s == StatusProcessing {
		return next.IsTerminal()
	}
	return s.IsTerminal() && s == next
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// Document is a stored unit of text.
type Document struct {
	// ID is assigned by the store at creation time.
	ID int64

	// Title is the human-readable title. Immutable.
	Title string

	// Content is the full text. Immutable.
	Content string

	// Embedding is the semantic fingerprint of Content. Stored once.
	Embedding []float32

	// Metadata is an open key-value document. The pipeline keeps
	// the document status under MetaStatus.
	Metadata map[string]any

	// Status mirrors Metadata[MetaStatus] when read from a store.
	Status Status

	// CreatedAt is set by the store at creation time.
	CreatedAt time.Time
}

// NewDocument carries the fields required to create a Document.
type NewDocument struct {
	Title     string
	Content   string
	Embedding []float32
	Metadata  map[string]any
}

// StatusFromMetadata extracts the status stored in a metadata map.
// Unknown or missing values yield an empty Status.
func StatusFromMetadata(meta map[string]any) Status {
	if meta == nil {
		return ""
	}
	raw, ok := meta[MetaStatus].(string)
	if !ok {
		return ""
	}
	s := Status(raw)
	if !s.IsValid() {
		return ""
	}
	return s
}

// SimilarClause is a retrieval result for a related document.
// It is produced per query and never persisted.
type SimilarClause struct {
	// ID is the matched document ID.
	ID int64 `json:"id"`

	// Title is the matched document title.
	Title string `json:"title"`

	// Content is the matched document content.
	Content string `json:"content"`

	// SimilarityScore is a heuristic confidence in [0,1].
	SimilarityScore float64 `json:"similarity_score"`

	// CreatedAt is the matched document creation time.
	CreatedAt time.Time `json:"created_at"`

	// Tier names the ranking strategy that produced the hit.
	Tier string `json:"tier,omitempty"`
}

// HistoryEntry is one row of analysis history, most recent first.
// Documents without an analysis have a nil Analysis.
type HistoryEntry struct {
	DocumentID int64     `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	Status     Status    `json:"status"`
	Analysis   *Analysis `json:"analysis_data,omitempty"`
	Report     string    `json:"risk_report,omitempty"`
}

// SeedOutcome reports what happened to one reference contract during setup.
type SeedOutcome struct {
	Title string

	// DocumentID is the stored or pre-existing document.
	DocumentID int64

	// Existing is true when a document with the same title was already stored.
	Existing bool

	// Err is set when the contract was skipped.
	Err error
}
