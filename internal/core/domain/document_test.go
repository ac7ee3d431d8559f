package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"processing is valid", StatusProcessing, true},
		{"completed is valid", StatusCompleted, true},
		{"failed is valid", StatusFailed, true},
		{"empty is invalid", Status(""), false},
		{"unknown is invalid", Status("archived"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsValid())
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, Status("").IsTerminal())
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		to       Status
		expected bool
	}{
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"processing to processing", StatusProcessing, StatusProcessing, false},
		{"completed to failed", StatusCompleted, StatusFailed, false},
		{"failed to completed", StatusFailed, StatusCompleted, false},
		{"completed to processing", StatusCompleted, StatusProcessing, false},
		{"failed to failed is idempotent", StatusFailed, StatusFailed, true},
		{"completed to completed is idempotent", StatusCompleted, StatusCompleted, true},
		{"unknown to completed", Status("x"), StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusFromMetadata(t *testing.T) {
	assert.Equal(t, StatusCompleted, StatusFromMetadata(map[string]any{MetaStatus: "completed"}))
	assert.Equal(t, Status(""), StatusFromMetadata(nil))
	assert.Equal(t, Status(""), StatusFromMetadata(map[string]any{MetaStatus: 42}))
	assert.Equal(t, Status(""), StatusFromMetadata(map[string]any{MetaStatus: "bogus"}))
	assert.Equal(t, Status(""), StatusFromMetadata(map[string]any{"other": "completed"}))
}
