package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrMissingPipelineService(t *testing.T) {
	assert.Error(t, ErrMissingPipelineService)
	assert.Contains(t, ErrMissingPipelineService.Error(), "pipeline service")
}
