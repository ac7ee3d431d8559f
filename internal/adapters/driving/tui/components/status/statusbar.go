// Package status provides the status bar shown under the progress view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/styles"
)

// State is the run state shown on the left of the bar.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Bar displays the run state and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateRunning,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateFailed:
		if s.message != "" {
			return s.styles.Error.Render("Failed: " + s.message)
		}
		return s.styles.Error.Render("Failed")
	case StateDone:
		return s.styles.Success.Render(orDefault(s.message, "Done"))
	default:
		return s.styles.Muted.Render(orDefault(s.message, "Running..."))
	}
}

func (s *Bar) renderRight() string {
	bindings := s.hintBindings()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// hintBindings returns the bindings relevant to the current state.
func (s *Bar) hintBindings() []key.Binding {
	if s.state == StateDone {
		return s.keymap.ReportHelp()
	}
	return s.keymap.ShortHelp()
}

// Set updates the state and message together.
func (s *Bar) Set(state State, message string) {
	s.state = state
	s.message = message
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
