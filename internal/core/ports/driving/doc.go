// Package driving declares what the CLI, TUI, MCP server and drop-folder
// watcher may ask of the core.
//
//   - PipelineService: analyse a contract, list history, fetch a document
//   - RetrievalService: find stored contracts related to a piece of text
//   - HealthService: ping the embedding, generation and storage backends
//   - SeedService: insert the sample contracts
//   - SettingsService: read, change and validate configuration
//
// internal/core/services implements every interface here.
package driving
