package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"folio/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Entrée"
	Desc string // e.g. "Envoyer"
}

// StatusBarModel renders the bottom bar: keybinding hints on the left,
// model name and a transient notice on the right.
type StatusBarModel struct {
	Hints     []KeyHint
	ModelName string
	Extra     string // transient notice, e.g. an unknown command
	Alert     bool   // render Extra in the error style
	width     int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	hints := make([]string, 0, len(m.Hints))
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+" "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var right []string
	if m.Extra != "" {
		style := theme.TextInfo
		if m.Alert {
			style = theme.TextError
		}
		right = append(right, style.Render(m.Extra))
	}
	if m.ModelName != "" {
		right = append(right, theme.TextMuted.Render(m.ModelName))
	}
	r := strings.Join(right, "  ")

	// Hints give way first on narrow terminals.
	if room := m.width - lipgloss.Width(r) - 3; m.width > 0 && lipgloss.Width(left) > room {
		left = ansi.Truncate(left, max(room, 0), "…")
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(r)-2, 1)
	return theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + r)
}
