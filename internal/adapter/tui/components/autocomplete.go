package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"folio/internal/adapter/tui/theme"
)

// CommandDef describes one slash command offered by the popup.
type CommandDef struct {
	Name        string // e.g. "/profil"
	Description string
}

// AutocompleteModel is the slash-command popup shown above the input.
type AutocompleteModel struct {
	Commands []CommandDef
	Filtered []CommandDef
	Selected int
	Visible  bool
	width    int
}

// NewAutocomplete creates a popup over the given commands.
func NewAutocomplete(commands []CommandDef) AutocompleteModel {
	return AutocompleteModel{Commands: commands}
}

// SetWidth updates the popup width.
func (m *AutocompleteModel) SetWidth(w int) {
	m.width = w
}

// SetPrefix filters the commands by prefix and shows the popup when
// anything matches. An exact match hides it since there is nothing to complete.
func (m *AutocompleteModel) SetPrefix(prefix string) {
	prefix = strings.ToLower(prefix)
	m.Filtered = nil
	for _, c := range m.Commands {
		if strings.HasPrefix(c.Name, prefix) && c.Name != prefix {
			m.Filtered = append(m.Filtered, c)
		}
	}
	m.Visible = prefix != "" && len(m.Filtered) > 0
	if m.Selected >= len(m.Filtered) {
		m.Selected = 0
	}
}

// Hide hides the popup and resets the selection.
func (m *AutocompleteModel) Hide() {
	m.Visible = false
	m.Filtered = nil
	m.Selected = 0
}

// SelectNext moves the selection down, wrapping.
func (m *AutocompleteModel) SelectNext() {
	if n := len(m.Filtered); n > 0 {
		m.Selected = (m.Selected + 1) % n
	}
}

// SelectPrev moves the selection up, wrapping.
func (m *AutocompleteModel) SelectPrev() {
	if n := len(m.Filtered); n > 0 {
		m.Selected = (m.Selected - 1 + n) % n
	}
}

// Accept returns the selected command name and hides the popup.
func (m *AutocompleteModel) Accept() string {
	if len(m.Filtered) == 0 {
		return ""
	}
	name := m.Filtered[m.Selected].Name
	m.Hide()
	return name
}

// View renders the popup, or "" when hidden.
func (m AutocompleteModel) View() string {
	if !m.Visible {
		return ""
	}

	nameW := 0
	for _, c := range m.Filtered {
		nameW = max(nameW, len(c.Name))
	}
	maxDesc := max(m.width-nameW-10, 10)

	lines := make([]string, 0, len(m.Filtered))
	for i, c := range m.Filtered {
		desc := []rune(c.Description)
		if len(desc) > maxDesc {
			desc = append(desc[:maxDesc-1], []rune(theme.SymbolEllipsis)...)
		}
		marker := "  "
		if i == m.Selected {
			marker = theme.TextInfo.Render(theme.SymbolArrowR + " ")
		}
		lines = append(lines, marker+c.Name+strings.Repeat(" ", nameW-len(c.Name)+2)+
			theme.TextMuted.Render(string(desc)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorderActive).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}
