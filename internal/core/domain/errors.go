package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters wrap their own errors with these so callers can use errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// It is returned before any side effect takes place.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding service failed or is not configured.
	// Fatal to a pipeline run when it occurs before the document exists.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrRetrievalDegraded indicates related-document search could not produce results.
	// Never fatal: the pipeline continues with an empty set.
	ErrRetrievalDegraded = errors.New("retrieval degraded")

	// ErrVectorIndexUnavailable indicates no comparable embeddings are stored.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrSearchUnavailable indicates the store cannot serve a search tier.
	ErrSearchUnavailable = errors.New("search engine unavailable")

	// ErrGenerationTimeout indicates a generation call exceeded its deadline.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrGenerationFailed indicates a generation call failed or returned unusable output.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrPersistence indicates a store write or read failed.
	// Fatal to a pipeline run.
	ErrPersistence = errors.New("persistence error")

	// ErrNotificationFailed indicates a notification could not be delivered.
	// Always logged, never returned to pipeline callers.
	ErrNotificationFailed = errors.New("notification failed")

	// ErrInvalidTransition indicates a status change that the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)
