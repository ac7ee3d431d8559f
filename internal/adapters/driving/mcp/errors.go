// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// contract agent. It lets AI assistants submit contracts for analysis, read
// analysis history and search related contracts.
package mcp

import "errors"

// ErrMissingPipelineService is returned when the pipeline service is not provided.
var ErrMissingPipelineService = errors.New("mcp: pipeline service is required")
