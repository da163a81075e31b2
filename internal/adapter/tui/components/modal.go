package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"folio/internal/adapter/tui/theme"
)

// ModalModel is a full-screen overlay for long markdown content such as the
// profile card and the help screen. Content is rendered with glamour and
// re-rendered when the terminal is resized.
type ModalModel struct {
	Viewport viewport.Model
	Title    string
	Visible  bool
	source   string
	width    int
	height   int
}

// NewModal creates a hidden modal.
func NewModal() ModalModel {
	return ModalModel{}
}

// OpenMarkdown shows markdown content rendered for the terminal.
func (m *ModalModel) OpenMarkdown(title, md string) {
	m.Title = title
	m.source = md
	m.Visible = true
	w, h := m.innerSize()
	m.Viewport = viewport.New(w, h)
	m.Viewport.MouseWheelEnabled = true
	m.refresh()
}

// Close hides the modal.
func (m *ModalModel) Close() {
	m.Visible = false
}

// SetSize updates the modal dimensions.
func (m *ModalModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.Visible {
		m.Viewport.Width, m.Viewport.Height = m.innerSize()
		m.refresh()
	}
}

func (m *ModalModel) innerSize() (int, int) {
	if m.width <= 0 || m.height <= 0 {
		return 80, 24
	}
	return m.width - 4, m.height - 4
}

func (m *ModalModel) refresh() {
	content := m.source
	if out, err := RenderMarkdown(m.source, m.Viewport.Width); err == nil {
		content = out
	}
	m.Viewport.SetContent(content)
}

// Update handles modal keys: Esc/q close, j/k scroll, g/G jump.
func (m ModalModel) Update(msg tea.Msg) (ModalModel, tea.Cmd) {
	if !m.Visible {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc", "q":
			m.Close()
			return m, nil
		case "j", "down":
			m.Viewport.LineDown(3)
			return m, nil
		case "k", "up":
			m.Viewport.LineUp(3)
			return m, nil
		case "g":
			m.Viewport.GotoTop()
			return m, nil
		case "G":
			m.Viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View renders the modal overlay.
func (m ModalModel) View() string {
	if !m.Visible {
		return ""
	}

	titleBar := theme.Bold.Render("  " + m.Title)
	scrollInfo := theme.TextMuted.Render(fmt.Sprintf(" %.0f%%", m.Viewport.ScrollPercent()*100))
	footer := theme.Dim.Render("  Esc/q : fermer  j/k : défiler  g/G : début/fin") + "  " + scrollInfo

	inner := lipgloss.JoinVertical(lipgloss.Left, titleBar, m.Viewport.View(), footer)

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorderActive).
		Padding(0, 1).
		Width(max(m.width-2, 0)).
		Height(max(m.height-2, 0)).
		Render(inner)
}

// RenderMarkdown renders md for a terminal of the given width.
func RenderMarkdown(md string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
