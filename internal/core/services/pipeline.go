package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
	"github.com/custodia-labs/contract-agent/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// Retrieval parameters used for every run.
const (
	relatedQueryRunes = 1000
	relatedLimit      = 5
	relatedMinScore   = domain.DefaultMinScore
)

// relatedFinder is satisfied by RetrievalService.
type relatedFinder interface {
	FindRelatedExcluding(ctx context.Context, query string, limit int, minScore float64, excludeID int64) ([]domain.SimilarClause, error)
}

// PipelineService runs one contract through embedding, retrieval, analysis,
// reporting, persistence and notification. Every document it creates ends
// in exactly one terminal status.
type PipelineService struct {
	store     driven.DocumentStore
	gateway   *Gateway
	retrieval relatedFinder
	analysis  *AnalysisService
	notifier  driven.Notifier
	timeouts  domain.PipelineSettings
	now       func() time.Time
}

// NewPipelineService creates a pipeline. notifier may be nil.
func NewPipelineService(
	store driven.DocumentStore,
	gateway *Gateway,
	retrieval relatedFinder,
	analysis *AnalysisService,
	notifier driven.Notifier,
	timeouts domain.PipelineSettings,
) *PipelineService {
	defaults := domain.DefaultPipelineSettings()
	if timeouts.StoreTimeout <= 0 {
		timeouts.StoreTimeout = defaults.StoreTimeout
	}
	if timeouts.NotifyTimeout <= 0 {
		timeouts.NotifyTimeout = defaults.NotifyTimeout
	}
	return &PipelineService{
		store:     store,
		gateway:   gateway,
		retrieval: retrieval,
		analysis:  analysis,
		notifier:  notifier,
		timeouts:  timeouts,
		now:       time.Now,
	}
}

// ProcessDocument runs the full pipeline for one contract.
func (s *PipelineService) ProcessDocument(
	ctx context.Context, title, content string, metadata map[string]any,
) (*domain.ProcessingResult, error) {
	return s.ProcessDocumentWithProgress(ctx, title, content, metadata, nil)
}

// ProcessDocumentWithProgress is ProcessDocument with a stage observer.
//
// Validation, pre-creation embedding and persistence failures abort the run.
// Retrieval, generation and notification failures degrade to empty or
// fallback values and the run still completes.
func (s *PipelineService) ProcessDocumentWithProgress(
	ctx context.Context, title, content string, metadata map[string]any, progress domain.ProgressFunc,
) (*domain.ProcessingResult, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: title and content are required", domain.ErrInvalidInput)
	}
	if progress == nil {
		progress = func(domain.Stage, string) {}
	}

	runID := uuid.NewString()
	logger.Section("Analysing " + title)

	// 1. Embed, then create the document. Nothing is persisted if embedding fails.
	progress(domain.StageEmbed, "Computing embedding")
	embedding, err := s.gateway.Embed(ctx, content)
	if err != nil {
		return nil, err
	}

	id, err := s.createDocument(ctx, domain.NewDocument{
		Title:     title,
		Content:   content,
		Embedding: embedding,
		Metadata:  s.runMetadata(metadata, runID),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Created document %d (run %s)", id, runID)

	result := &domain.ProcessingResult{
		DocumentID: id,
		RunID:      runID,
		Workflow:   []string{"Document ingested and indexed"},
	}

	// From here on the document exists and must end in a terminal status.
	if err := s.complete(ctx, id, title, content, result, progress); err != nil {
		s.markFailed(ctx, id, err)
		return nil, err
	}

	result.Success = true
	return result, nil
}

// complete runs every stage after document creation.
func (s *PipelineService) complete(
	ctx context.Context, id int64, title, content string, result *domain.ProcessingResult, progress domain.ProgressFunc,
) error {
	// 2. Related contracts. Failure degrades to an empty set.
	progress(domain.StageRetrieve, "Searching related contracts")
	related, err := s.retrieval.FindRelatedExcluding(ctx,
		runeSlice(content, 0, relatedQueryRunes), relatedLimit, relatedMinScore, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Warn("Related search for document %d degraded: %v", id, err)
		related = []domain.SimilarClause{}
	}
	result.Related = related
	result.SimilarClauses = len(related)
	result.Workflow = append(result.Workflow, fmt.Sprintf("Found %d similar clauses", len(related)))

	// 3. Analysis. Failure yields the fallback analysis.
	progress(domain.StageAnalyze, "Running contract analysis")
	analysis, err := s.analysis.Analyze(ctx, content, related)
	if err != nil {
		logger.Warn("Analysis for document %d used fallback: %v", id, err)
		result.Workflow = append(result.Workflow, "AI analysis completed with fallback")
	} else {
		result.Workflow = append(result.Workflow, "AI analysis completed")
	}
	result.Analysis = analysis

	// 4. Report. Failure yields the formatted fallback report.
	progress(domain.StageReport, "Generating risk report")
	report, err := s.analysis.GenerateReport(ctx, analysis, title)
	if err != nil {
		logger.Warn("Report for document %d used fallback: %v", id, err)
		result.Workflow = append(result.Workflow, "Risk report generated with fallback")
	} else {
		result.Workflow = append(result.Workflow, "Risk report generated")
	}
	result.Report = report

	// 5. Persist analysis and report, unless the caller has given up.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled: %w", err)
	}
	progress(domain.StageStore, "Storing results")
	if err := s.saveAnalysis(ctx, id, analysis, report); err != nil {
		return err
	}
	result.Workflow = append(result.Workflow, "Results stored in database")

	// 6. Notify. Never fatal.
	progress(domain.StageNotify, "Sending notification")
	if err := s.notify(ctx, title, analysis); err != nil {
		logger.Warn("%v", err)
		result.Workflow = append(result.Workflow, "Notification failed")
	} else {
		result.Workflow = append(result.Workflow, "Notifications sent")
	}

	// 7. Terminal status.
	if err := s.updateStatus(ctx, id, domain.StatusCompleted); err != nil {
		return err
	}
	result.Workflow = append(result.Workflow, "Workflow completed")
	progress(domain.StageComplete, fmt.Sprintf("Risk level %s", analysis.RiskLevel))

	logger.Info("Document %d completed with risk level %s", id, analysis.RiskLevel)
	return nil
}

// ListHistory returns recent analyses, most recent first.
func (s *PipelineService) ListHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	limit = domain.ClampLimit(limit, domain.DefaultHistoryLimit, domain.MaxHistoryLimit)

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.StoreTimeout)
	defer cancel()

	entries, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list history: %w", domain.ErrPersistence, err)
	}
	return entries, nil
}

// GetDocument returns a stored document by ID.
func (s *PipelineService) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.StoreTimeout)
	defer cancel()

	doc, err := s.store.GetDocument(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document %d: %w", domain.ErrPersistence, id, err)
	}
	return doc, nil
}

// runMetadata copies caller metadata and stamps the pipeline fields over it.
func (s *PipelineService) runMetadata(metadata map[string]any, runID string) map[string]any {
	meta := make(map[string]any, len(metadata)+3)
	maps.Copy(meta, metadata)
	meta[domain.MetaStatus] = string(domain.StatusProcessing)
	meta[domain.MetaProcessedAt] = s.now().UTC().Format(time.RFC3339)
	meta[domain.MetaRunID] = runID
	return meta
}

func (s *PipelineService) createDocument(ctx context.Context, doc domain.NewDocument) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.StoreTimeout)
	defer cancel()

	id, err := s.store.CreateDocument(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("%w: create document: %w", domain.ErrPersistence, err)
	}
	return id, nil
}

func (s *PipelineService) saveAnalysis(ctx context.Context, id int64, analysis domain.Analysis, report string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.StoreTimeout)
	defer cancel()

	if err := s.store.SaveAnalysis(ctx, id, analysis, report); err != nil {
		return fmt.Errorf("%w: save analysis for document %d: %w", domain.ErrPersistence, id, err)
	}
	return nil
}

func (s *PipelineService) updateStatus(ctx context.Context, id int64, status domain.Status) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.StoreTimeout)
	defer cancel()

	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("%w: mark document %d %s: %w", domain.ErrPersistence, id, status, err)
	}
	return nil
}

func (s *PipelineService) notify(ctx context.Context, title string, analysis domain.Analysis) error {
	if s.notifier == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.NotifyTimeout)
	defer cancel()

	err := s.notifier.Notify(ctx, driven.Notification{
		Title:     title,
		RiskLevel: analysis.RiskLevel,
		Summary:   analysis.Summary,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err)
	}
	return nil
}

// markFailed writes the failed status after cause aborted the run.
// It detaches from the caller's cancellation so a cancelled run is still
// recorded, and only logs its own failure so cause is never masked.
func (s *PipelineService) markFailed(ctx context.Context, id int64, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeouts.StoreTimeout)
	defer cancel()

	if err := s.store.UpdateStatus(ctx, id, domain.StatusFailed); err != nil {
		logger.Error("Failed to mark document %d failed after %v: %v", id, cause, err)
		return
	}
	logger.Warn("Document %d marked failed: %v", id, cause)
}
