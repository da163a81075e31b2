// Package components provides reusable Bubble Tea sub-models for the chat TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"folio/internal/adapter/tui/theme"
)

// Availability is the assistant status shown in the header badge.
type Availability int

const (
	AvailabilityConnecting Availability = iota
	AvailabilityOnline
	AvailabilityOffline
)

// Badge labels.
const (
	LabelConnecting = "Connexion..."
	LabelOnline     = "En ligne"
	LabelOffline    = "Hors ligne"
)

// HeaderModel is the one-line title bar: assistant title, an optional
// subtitle, and the availability badge on the right.
type HeaderModel struct {
	Title        string
	Subtitle     string
	Availability Availability
	width        int
}

// NewHeader creates a header in the connecting state.
func NewHeader(title, subtitle string) HeaderModel {
	return HeaderModel{Title: title, Subtitle: subtitle}
}

// SetWidth updates the available width. The subtitle is dropped on narrow
// terminals.
func (m *HeaderModel) SetWidth(w int) {
	m.width = w
}

// View renders the header bar.
func (m HeaderModel) View() string {
	left := theme.HeaderBar.Render(m.Title)
	if m.Subtitle != "" && m.width >= theme.MinHeaderWidth {
		left += theme.HeaderBar.Bold(false).Faint(true).Render(m.Subtitle)
	}
	right := m.badge()

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left + right
	}
	return left + theme.HeaderBar.UnsetPadding().Render(strings.Repeat(" ", gap)) + right
}

func (m HeaderModel) badge() string {
	switch m.Availability {
	case AvailabilityOnline:
		return theme.BadgeOnline.Render(theme.SymbolInfo + " " + LabelOnline)
	case AvailabilityOffline:
		return theme.BadgeOffline.Render(theme.SymbolInfo + " " + LabelOffline)
	default:
		return theme.BadgePending.Render(theme.SymbolInfo + " " + LabelConnecting)
	}
}
