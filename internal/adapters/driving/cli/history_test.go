package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

func TestHistoryCmd(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pipeline := &mockPipeline{history: []domain.HistoryEntry{
		{
			DocumentID: 2,
			Title:      "Consulting Agreement with an unusually long title for the table",
			CreatedAt:  created,
			Status:     domain.StatusCompleted,
			Analysis:   &domain.Analysis{RiskLevel: domain.RiskMedium},
		},
		{DocumentID: 1, Title: "Lease", CreatedAt: created, Status: domain.StatusProcessing},
	}}
	setTestServices(t, &Services{Pipeline: pipeline})

	out, err := execute(t, "history", "-n", "3")
	require.NoError(t, err)

	assert.Equal(t, 3, pipeline.gotLimit)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Consulting Agreement with an unusuall...")
	assert.Contains(t, out, "Medium")
	assert.Contains(t, out, "Lease")
	assert.Contains(t, out, string(domain.StatusProcessing))
}

func TestHistoryCmd_DefaultLimit(t *testing.T) {
	pipeline := &mockPipeline{}
	setTestServices(t, &Services{Pipeline: pipeline})

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultHistoryLimit, pipeline.gotLimit)
	assert.Contains(t, out, "No contracts analysed yet.")
}

func TestHistoryCmd_LimitCoerced(t *testing.T) {
	tests := []struct {
		name  string
		limit string
		want  int
	}{
		{"non-numeric", "abc", domain.DefaultHistoryLimit},
		{"negative", "-5", 1},
		{"zero", "0", domain.DefaultHistoryLimit},
		{"above max", "1000", domain.MaxHistoryLimit},
		{"padded", " 7 ", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &mockPipeline{}
			setTestServices(t, &Services{Pipeline: pipeline})

			_, err := execute(t, "history", "--limit="+tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pipeline.gotLimit)
		})
	}
}

func TestHistoryCmd_JSON(t *testing.T) {
	pipeline := &mockPipeline{history: []domain.HistoryEntry{
		{DocumentID: 7, Title: "NDA", Status: domain.StatusFailed},
	}}
	setTestServices(t, &Services{Pipeline: pipeline})

	out, err := execute(t, "history", "--json")
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "NDA", got[0]["title"])
	assert.EqualValues(t, 7, got[0]["id"])
	assert.NotContains(t, got[0], "analysis_data")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "x", orDash("x"))
}
