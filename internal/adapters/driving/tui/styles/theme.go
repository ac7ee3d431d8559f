// Package styles holds the lipgloss styles for the analysis progress view.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// Theme is the colour palette. High, Medium and Low double as the failure,
// warning and success colours.
type Theme struct {
	Accent lipgloss.Color
	Stage  lipgloss.Color
	Text   lipgloss.Color
	Dim    lipgloss.Color
	High   lipgloss.Color
	Medium lipgloss.Color
	Low    lipgloss.Color
	Frame  lipgloss.Color
	Bar    lipgloss.Color
}

// DefaultTheme returns the dark-terminal palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent: lipgloss.Color("#7C3AED"),
		Stage:  lipgloss.Color("#06B6D4"),
		Text:   lipgloss.Color("#CDD6F4"),
		Dim:    lipgloss.Color("#6C7086"),
		High:   lipgloss.Color("#F38BA8"),
		Medium: lipgloss.Color("#F9E2AF"),
		Low:    lipgloss.Color("#A6E3A1"),
		Frame:  lipgloss.Color("#45475A"),
		Bar:    lipgloss.Color("#181825"),
	}
}

// Styles are the rendered styles derived from a Theme.
type Styles struct {
	theme *Theme

	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Normal    lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	StatusBar lipgloss.Style
	Border    lipgloss.Style
}

// NewStyles derives styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return &Styles{
		theme:     theme,
		Title:     fg(theme.Accent).Bold(true),
		Subtitle:  fg(theme.Stage).Bold(true),
		Normal:    fg(theme.Text),
		Muted:     fg(theme.Dim),
		Error:     fg(theme.High),
		Success:   fg(theme.Low),
		Warning:   fg(theme.Medium),
		StatusBar: fg(theme.Dim).Background(theme.Bar).Padding(0, 1),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Frame).
			Padding(0, 1),
	}
}

// DefaultStyles is NewStyles(DefaultTheme()).
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Risk is the bold badge style for a risk level. Unknown levels render dim.
func (s *Styles) Risk(level domain.RiskLevel) lipgloss.Style {
	switch level {
	case domain.RiskHigh:
		return s.Error.Bold(true)
	case domain.RiskMedium:
		return s.Warning.Bold(true)
	case domain.RiskLow:
		return s.Success.Bold(true)
	default:
		return s.Muted.Bold(true)
	}
}
