package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
	"github.com/custodia-labs/contract-agent/internal/logger"
)

// Ensure SeedService implements the interface.
var _ driving.SeedService = (*SeedService)(nil)

const softwareLicenceSample = `SOFTWARE LICENSE AGREEMENT

This Software License Agreement ("Agreement") is entered into between Company and Licensee.

1. GRANT OF LICENSE
Company grants Licensee a non-exclusive, non-transferable license to use the software.

2. RESTRICTIONS
Licensee shall not modify, distribute, or reverse engineer the software.

3. TERMINATION
This agreement may be terminated by either party with 30 days written notice.

4. LIABILITY
Company's liability is limited to the amount paid for the software license.`

const consultingServiceSample = `CONSULTING SERVICE AGREEMENT

This Service Agreement is between Consultant and Client for professional services.

1. SCOPE OF WORK
Consultant will provide strategic consulting services as outlined in Exhibit A.

2. PAYMENT TERMS
Client agrees to pay consultant $150/hour for services rendered.

3. CONFIDENTIALITY
Both parties agree to maintain confidentiality of proprietary information.

4. INDEMNIFICATION
Each party shall indemnify the other against third-party claims arising from their actions.`

// SampleContracts returns the reference contracts installed by setup.
func SampleContracts() []domain.NewDocument {
	return []domain.NewDocument{
		{
			Title:    "Software License Agreement - Template",
			Content:  softwareLicenceSample,
			Metadata: map[string]any{"type": "template", "category": "software"},
		},
		{
			Title:    "Service Agreement - Consulting",
			Content:  consultingServiceSample,
			Metadata: map[string]any{"type": "service", "category": "consulting"},
		},
	}
}

// SeedService stores reference contracts without analysing them.
type SeedService struct {
	store        driven.DocumentStore
	embedder     queryEmbedder
	storeTimeout time.Duration
	now          func() time.Time
}

// NewSeedService creates a seed service.
func NewSeedService(store driven.DocumentStore, embedder queryEmbedder, storeTimeout time.Duration) *SeedService {
	if storeTimeout <= 0 {
		storeTimeout = domain.DefaultPipelineSettings().StoreTimeout
	}
	return &SeedService{store: store, embedder: embedder, storeTimeout: storeTimeout, now: time.Now}
}

// SeedSamples stores the bundled sample contracts.
func (s *SeedService) SeedSamples(ctx context.Context) []domain.SeedOutcome {
	return s.Seed(ctx, SampleContracts())
}

// Seed stores each document whose title is not already present.
// Seeded documents are stored as completed since no run owns them.
func (s *SeedService) Seed(ctx context.Context, docs []domain.NewDocument) []domain.SeedOutcome {
	outcomes := make([]domain.SeedOutcome, 0, len(docs))
	for _, doc := range docs {
		outcome := s.seedOne(ctx, doc)
		switch {
		case outcome.Err != nil:
			logger.Warn("Skipping sample contract %q: %v", doc.Title, outcome.Err)
		case outcome.Existing:
			logger.Debug("Sample contract %q already stored as %d", doc.Title, outcome.DocumentID)
		default:
			logger.Info("Inserted sample contract %q as %d", doc.Title, outcome.DocumentID)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (s *SeedService) seedOne(ctx context.Context, doc domain.NewDocument) domain.SeedOutcome {
	outcome := domain.SeedOutcome{Title: doc.Title}

	id, err := s.findByTitle(ctx, doc.Title)
	switch {
	case err == nil:
		outcome.DocumentID = id
		outcome.Existing = true
		return outcome
	case !errors.Is(err, domain.ErrNotFound):
		outcome.Err = fmt.Errorf("%w: lookup %q: %w", domain.ErrPersistence, doc.Title, err)
		return outcome
	}

	embedding, err := s.embedder.Embed(ctx, doc.Content)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	meta := make(map[string]any, len(doc.Metadata)+3)
	maps.Copy(meta, doc.Metadata)
	meta["source"] = "setup"
	meta[domain.MetaStatus] = string(domain.StatusCompleted)
	meta[domain.MetaProcessedAt] = s.now().UTC().Format(time.RFC3339)

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	id, err = s.store.CreateDocument(storeCtx, domain.NewDocument{
		Title:     doc.Title,
		Content:   doc.Content,
		Embedding: embedding,
		Metadata:  meta,
	})
	if err != nil {
		outcome.Err = fmt.Errorf("%w: create %q: %w", domain.ErrPersistence, doc.Title, err)
		return outcome
	}
	outcome.DocumentID = id
	return outcome
}

func (s *SeedService) findByTitle(ctx context.Context, title string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.FindDocumentByTitle(ctx, title)
}
