package components

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"folio/internal/domain"
)

// ChatViewModel wraps a viewport with smart auto-scroll behavior.
// Auto-scroll is active when the user is at the bottom.
// If the user scrolls up, auto-scroll pauses.
// It resumes when the user scrolls back to the bottom.
type ChatViewModel struct {
	Viewport viewport.Model
	Messages MessageListModel
	ready    bool
	atBottom bool
}

// NewChatView creates a chat view. The viewport is initialized lazily on the first WindowSizeMsg.
func NewChatView() ChatViewModel {
	return ChatViewModel{
		Messages: NewMessageList(),
		atBottom: true,
	}
}

// SetSize sets the viewport dimensions and triggers content re-render.
func (m *ChatViewModel) SetSize(w, h int) {
	m.Messages.SetWidth(w)
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.Viewport.MouseWheelDelta = 3
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	m.refreshContent()
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// SetTurns replaces the displayed transcript and follows the newest turn
// while auto-scroll is active.
func (m *ChatViewModel) SetTurns(turns []domain.Turn, busy bool) {
	m.Messages.SetTurns(turns, busy)
	m.refreshContent()
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// Update handles viewport scrolling and tracks auto-scroll state.
func (m ChatViewModel) Update(msg tea.Msg) (ChatViewModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	m.atBottom = m.Viewport.AtBottom()

	return m, cmd
}

// ScrollUp moves the viewport up n lines and pauses auto-scroll.
func (m *ChatViewModel) ScrollUp(n int) {
	m.Viewport.LineUp(n)
	m.atBottom = m.Viewport.AtBottom()
}

// ScrollDown moves the viewport down n lines.
func (m *ChatViewModel) ScrollDown(n int) {
	m.Viewport.LineDown(n)
	m.atBottom = m.Viewport.AtBottom()
}

// GotoTop scrolls to the greeting.
func (m *ChatViewModel) GotoTop() {
	m.Viewport.GotoTop()
	m.atBottom = m.Viewport.AtBottom()
}

// GotoBottom scrolls to the newest turn and resumes auto-scroll.
func (m *ChatViewModel) GotoBottom() {
	m.Viewport.GotoBottom()
	m.atBottom = true
}

// View renders the chat viewport.
func (m ChatViewModel) View() string {
	if !m.ready {
		return "  Initialisation..."
	}
	return m.Viewport.View()
}

func (m *ChatViewModel) refreshContent() {
	if !m.ready {
		return
	}
	m.Viewport.SetContent(m.Messages.View())
}
