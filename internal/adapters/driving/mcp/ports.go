package mcp

import (
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Pipeline runs analyses and serves history.
	Pipeline driving.PipelineService

	// Retrieval finds related contracts. Optional: find_related is only
	// registered when it is set.
	Retrieval driving.RetrievalService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Pipeline == nil {
		return ErrMissingPipelineService
	}
	return nil
}
