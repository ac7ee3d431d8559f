// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// StageChanged is sent when the running pipeline enters a new stage.
type StageChanged struct {
	Stage  domain.Stage
	Detail string
}

// RunCompleted carries the outcome of the pipeline run.
type RunCompleted struct {
	Result *domain.ProcessingResult
	Err    error
}

// Succeeded reports whether the run produced a result.
func (m RunCompleted) Succeeded() bool {
	return m.Err == nil && m.Result != nil
}
