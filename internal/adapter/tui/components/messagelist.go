package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"folio/internal/adapter/tui/theme"
	"folio/internal/domain"
)

// MessageRole identifies how a transcript turn is drawn.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleError     MessageRole = "error"
)

// ChatMessage is one rendered transcript turn.
type ChatMessage struct {
	ID        string
	Role      MessageRole
	Content   string
	Pending   bool   // open reply with no text yet
	Rendered  string // cached body; empty means not yet rendered
	Timestamp time.Time
}

// MessageFromTurn maps a transcript turn onto its display role.
func MessageFromTurn(t domain.Turn) ChatMessage {
	role := RoleAssistant
	switch {
	case t.Speaker == domain.SpeakerUser:
		role = RoleUser
	case t.IsError:
		role = RoleError
	}
	return ChatMessage{ID: t.ID, Role: role, Content: t.Text, Timestamp: t.CreatedAt}
}

// MessageListModel renders the transcript. Turns are keyed by ID so a
// rendered turn is only redrawn when its text changes.
type MessageListModel struct {
	Messages []ChatMessage
	width    int
}

// NewMessageList creates an empty message list.
func NewMessageList() MessageListModel {
	return MessageListModel{}
}

// SetWidth updates the rendering width and clears cached renders.
func (m *MessageListModel) SetWidth(w int) {
	if w == m.width {
		return
	}
	m.width = w
	for i := range m.Messages {
		m.Messages[i].Rendered = ""
	}
}

// SetTurns replaces the list with the given transcript, keeping the cached
// render of every turn whose text is unchanged. busy marks an empty
// trailing model turn as a reply still on its way.
func (m *MessageListModel) SetTurns(turns []domain.Turn, busy bool) {
	cache := make(map[string]ChatMessage, len(m.Messages))
	for _, msg := range m.Messages {
		cache[msg.ID] = msg
	}
	out := make([]ChatMessage, 0, len(turns))
	for i, t := range turns {
		msg := MessageFromTurn(t)
		msg.Pending = busy && i == len(turns)-1 && msg.Role == RoleAssistant && msg.Content == ""
		if old, ok := cache[msg.ID]; ok && old.Content == msg.Content && old.Role == msg.Role && old.Pending == msg.Pending {
			msg.Rendered = old.Rendered
		}
		out = append(out, msg)
	}
	m.Messages = out
}

// View renders all messages as a single string.
func (m *MessageListModel) View() string {
	if len(m.Messages) == 0 {
		return theme.TextMuted.Render("  Aucun message pour le moment.")
	}

	width := ContentWidth(m.width)
	now := time.Now()

	var sb strings.Builder
	for i := range m.Messages {
		msg := &m.Messages[i]
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if msg.Rendered == "" {
			msg.Rendered = indent(renderBody(*msg, width-2), "  ")
		}
		sb.WriteString(roleLabel(msg.Role) + " " + theme.Timestamp.Render(Clock(msg.Timestamp, now)))
		sb.WriteString("\n")
		sb.WriteString(msg.Rendered)
	}
	return sb.String()
}

func renderBody(msg ChatMessage, width int) string {
	switch msg.Role {
	case RoleUser:
		return theme.UserText.Render(wrapText(msg.Content, width))
	case RoleError:
		return theme.TextError.Render(wrapText(msg.Content, width))
	}
	if msg.Pending {
		return theme.TextMuted.Render(theme.SymbolEllipsis)
	}
	if msg.Content == "" {
		return ""
	}
	return RenderSegments(domain.SplitLinks(msg.Content), width)
}

// RenderSegments draws a model reply: plain runs as wrapped text and each
// link as its styled label followed by the muted URI.
func RenderSegments(segments []domain.Segment, width int) string {
	var sb strings.Builder
	for _, seg := range segments {
		switch seg.Kind {
		case domain.SegmentLink:
			sb.WriteString(theme.TextAccent.Render(theme.SymbolLink) + " " +
				theme.Link.Render(seg.Label) + " " +
				theme.TextMuted.Render("("+seg.URI+")"))
		default:
			sb.WriteString(seg.Text)
		}
	}
	if width <= 0 {
		return sb.String()
	}
	return lipgloss.NewStyle().Width(width).Render(sb.String())
}

func roleLabel(role MessageRole) string {
	switch role {
	case RoleUser:
		return theme.UserLabel.Render(theme.SymbolUser)
	case RoleAssistant:
		return theme.BotLabel.Render(theme.SymbolBot)
	case RoleError:
		return theme.ErrorLabel.Render(theme.SymbolError + " " + theme.SymbolBot)
	default:
		return theme.TextMuted.Render(string(role))
	}
}

// Clock formats a turn time as "15:04", with the date when t is not on
// the same day as now.
func Clock(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return t.Format("15:04")
	}
	return t.Format("02/01 15:04")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapText wraps each line of s to width at spaces. Rune-based so
// multibyte UTF-8 is never split.
func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	var out []string
	for _, line := range strings.Split(s, "\n") {
		out = append(out, wrapLine([]rune(line), width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(runes []rune, width int) []string {
	var lines []string
	for len(runes) > width {
		idx := -1
		for i := width - 1; i > 0; i-- {
			if runes[i] == ' ' {
				idx = i
				break
			}
		}
		if idx <= 0 {
			idx = width
		}
		lines = append(lines, string(runes[:idx]))
		runes = runes[idx:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	return append(lines, string(runes))
}

// ContentWidth calculates the content width respecting MaxContentWidth.
func ContentWidth(termWidth int) int {
	w := termWidth - 4
	if w > theme.MaxContentWidth {
		w = theme.MaxContentWidth
	}
	if w < 40 {
		w = 40
	}
	return w
}

// Divider renders a horizontal line at the given width.
func Divider(width int) string {
	return lipgloss.NewStyle().
		Foreground(theme.ColorBorder).
		Render(strings.Repeat("─", width))
}
