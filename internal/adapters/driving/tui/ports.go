// Package tui renders live progress of a contract analysis in the terminal.
// It is a driving adapter: it only talks to the core through driving ports.
package tui

import (
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Pipeline runs the analysis being displayed.
	Pipeline driving.PipelineService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Pipeline == nil {
		return ErrMissingPipelineService
	}
	return nil
}
