package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
)

func TestStatusCmd_Healthy(t *testing.T) {
	setTestServices(t, &Services{
		Pipeline: &mockPipeline{},
		Health: &mockHealth{components: []driving.ComponentHealth{
			{Name: "embedding", Detail: "nomic-embed-text"},
			{Name: "llm", Detail: "llama3.2"},
			{Name: "store"},
		}},
	})

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "embedding")
	assert.Contains(t, out, "nomic-embed-text")
	assert.Contains(t, out, "OK")
	assert.NotContains(t, out, "FAILED")
}

func TestStatusCmd_Unhealthy(t *testing.T) {
	setTestServices(t, &Services{
		Health: &mockHealth{components: []driving.ComponentHealth{
			{Name: "embedding", Detail: "nomic-embed-text", Err: errors.New("connection refused")},
			{Name: "store", Detail: "sqlite"},
		}},
		Unavailable: errors.New("embedding service unreachable"),
	})

	out, err := execute(t, "status")
	assert.ErrorIs(t, err, errUnhealthy)
	assert.Contains(t, out, "FAILED: connection refused")
	assert.Contains(t, out, "Pipeline unavailable: embedding service unreachable")
}

func TestStatusCmd_NoHealth(t *testing.T) {
	setTestServices(t, &Services{Pipeline: &mockPipeline{}})

	_, err := execute(t, "status")
	assert.Error(t, err)
}
