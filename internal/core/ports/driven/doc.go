// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Document, analysis and status persistence
//   - ClauseSearcher: Candidate lookup for the retrieval tiers
//   - EmbeddingService: Generates vector embeddings for ingestion
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Without it, every analysis and report uses the fallback content.
//   - Notifier: Without it, notifications are skipped.
//   - PromptStore: Without it, built-in prompt templates are used.
//   - NormaliserRegistry: Without it, contract files are read as plain text.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
