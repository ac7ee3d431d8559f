package driven

import (
	"context"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// Normaliser extracts contract text from one family of file formats.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50-89; fallbacks return 1-9.
	Priority() int

	// Normalise extracts the text of a raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult is the extracted text of a contract file.
type NormaliseResult struct {
	// Title is the title declared inside the document, if any.
	// Empty means callers should derive one, usually from the file name.
	Title string

	// Content is the plain text handed to the pipeline.
	Content string

	// Format names the normaliser that produced the text (e.g., "docx").
	Format string
}
