package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// cancellingPipeline stops the command after the first contract.
type cancellingPipeline struct {
	mockPipeline
	cancel context.CancelFunc
	calls  int
}

func (p *cancellingPipeline) ProcessDocument(
	ctx context.Context, title, content string, metadata map[string]any,
) (*domain.ProcessingResult, error) {
	p.calls++
	defer p.cancel()
	return p.mockPipeline.ProcessDocument(ctx, title, content, metadata)
}

func TestWatchCmd_ProcessExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "msa.txt"), []byte("The supplier shall"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nda.txt"), []byte("Confidential"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte{0x89, 'P'}, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipeline := &cancellingPipeline{mockPipeline: mockPipeline{result: sampleResult()}, cancel: cancel}
	setTestServices(t, &Services{Pipeline: pipeline})

	out, err := executeContext(t, ctx, "", "watch", dir, "--process-existing")

	require.NoError(t, err, "cancellation is a clean exit")
	assert.Equal(t, 1, pipeline.calls)
	assert.Equal(t, "msa", pipeline.gotTitle)
	assert.Equal(t, "watch", pipeline.gotMetadata["source"])
	assert.Contains(t, out, "msa (document 42, risk High)")
	assert.NotContains(t, out, "Watching")
}

func TestWatchCmd_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lease.md"), []byte("# Lease"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipeline := &cancellingPipeline{mockPipeline: mockPipeline{err: domain.ErrPersistence}, cancel: cancel}
	setTestServices(t, &Services{Pipeline: pipeline})

	out, err := executeContext(t, ctx, "", "watch", dir, "--process-existing")

	require.NoError(t, err)
	assert.Contains(t, out, "lease")
	assert.Contains(t, out, domain.ErrPersistence.Error())
}

func TestWatchCmd_MissingDirectory(t *testing.T) {
	setTestServices(t, &Services{Pipeline: &mockPipeline{}})

	_, err := execute(t, "watch", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWatchCmd_RequiresDirectory(t *testing.T) {
	_, err := execute(t, "watch")
	assert.Error(t, err)
}

func TestIgnoreCancel(t *testing.T) {
	assert.NoError(t, ignoreCancel(context.Canceled))
	assert.NoError(t, ignoreCancel(nil))

	other := errors.New("boom")
	assert.ErrorIs(t, ignoreCancel(other), other)
}
