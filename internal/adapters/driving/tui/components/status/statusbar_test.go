package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateRunning, bar.State())
	assert.Empty(t, bar.Message())
}

func TestNewBar_NilArguments(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestBar_View(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		message string
		want    []string
	}{
		{"running default", StateRunning, "", []string{"Running...", "q: quit"}},
		{"running detail", StateRunning, "Generating risk report", []string{"Generating risk report"}},
		{"done", StateDone, "Risk level High", []string{"Risk level High", "↑/k: up", "q: quit"}},
		{"failed", StateFailed, "embedding unavailable", []string{"Failed: embedding unavailable"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(120)
			bar.Set(tt.state, tt.message)

			view := bar.View()
			for _, want := range tt.want {
				assert.Contains(t, view, want)
			}
		})
	}
}

func TestBar_HintBindings(t *testing.T) {
	bar := NewBar(nil, nil)
	assert.Len(t, bar.hintBindings(), 1)

	bar.Set(StateDone, "")
	assert.Len(t, bar.hintBindings(), 4)
}

func TestBar_NarrowWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(5)

	assert.NotPanics(t, func() { _ = bar.View() })
}
