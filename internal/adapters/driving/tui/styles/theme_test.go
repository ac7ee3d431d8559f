package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()
	require.NotNil(t, theme)

	assert.Equal(t, lipgloss.Color("#7C3AED"), theme.Accent)
	assert.Equal(t, lipgloss.Color("#F38BA8"), theme.High)
}

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)
	require.NotNil(t, s)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestNewStyles_UsesRiskColours(t *testing.T) {
	s := DefaultStyles()
	theme := s.Theme()

	assert.Equal(t, lipgloss.TerminalColor(theme.High), s.Error.GetForeground())
	assert.Equal(t, lipgloss.TerminalColor(theme.Low), s.Success.GetForeground())
	assert.Equal(t, lipgloss.TerminalColor(theme.Bar), s.StatusBar.GetBackground())
	assert.True(t, s.Title.GetBold())
}

func TestStyles_Risk(t *testing.T) {
	s := DefaultStyles()
	theme := s.Theme()

	tests := []struct {
		level domain.RiskLevel
		want  lipgloss.TerminalColor
	}{
		{domain.RiskHigh, theme.High},
		{domain.RiskMedium, theme.Medium},
		{domain.RiskLow, theme.Low},
		{"", theme.Dim},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			style := s.Risk(tt.level)
			assert.Equal(t, tt.want, style.GetForeground())
			assert.True(t, style.GetBold())
		})
	}
}
