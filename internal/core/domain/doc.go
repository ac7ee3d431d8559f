// Package domain holds the contract-analysis types shared by every layer:
// Document and its Status lifecycle, Analysis and RiskLevel, SimilarClause,
// HistoryEntry, ProcessingResult, settings, request limits and the error
// sentinels.
//
// It imports only the standard library.
package domain
