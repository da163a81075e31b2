package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"folio/internal/adapter/tui/components"
	"folio/internal/adapter/tui/theme"
	"folio/internal/adapter/tui/uxerror"
	chatuc "folio/internal/usecase/chat"
)

// User-facing strings.
const (
	DefaultTitle = "Assistant IA"
	BusyText     = "L'IA réfléchit..."
)

// Controller is the part of the chat controller the widget drives.
type Controller interface {
	Initialize(ctx context.Context) error
	SetInput(text string)
	Submit(ctx context.Context, userText string) bool
	Snapshot() chatuc.Snapshot
}

// ChatModelDeps are dependencies injected into the chat model.
type ChatModelDeps struct {
	Ctx        context.Context // parent of every controller call; Background when nil
	Controller Controller
	Logger     *slog.Logger
	Title      string
	Subtitle   string
	ModelName  string
	Profile    string // markdown profile card; /profil is unavailable when empty
}

var slashCommands = []components.CommandDef{
	{Name: "/aide", Description: "Afficher l'aide"},
	{Name: "/profil", Description: "Afficher le profil"},
	{Name: "/quitter", Description: "Quitter"},
}

// ChatModel is the root Bubble Tea model for the chat widget. It owns no
// conversation state: every frame is drawn from the last controller snapshot.
type ChatModel struct {
	deps ChatModelDeps

	header    components.HeaderModel
	chatView  components.ChatViewModel
	input     components.InputAreaModel
	statusBar components.StatusBarModel
	spinner   spinner.Model
	modal     components.ModalModel

	snap       chatuc.Snapshot
	offline    *uxerror.FriendlyError
	scrollMode bool // input blurred, j/k scroll the transcript
	width      int
	height     int
	quitting   bool
}

// NewChatModel creates the root chat model from the controller's current
// snapshot.
func NewChatModel(deps ChatModelDeps) ChatModel {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Title == "" {
		deps.Title = DefaultTitle
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	sb := components.NewStatusBar()
	sb.ModelName = deps.ModelName
	sb.Hints = defaultHints()

	input := components.NewInputArea()
	input.Autocomplete = components.NewAutocomplete(slashCommands)

	m := ChatModel{
		deps:      deps,
		header:    components.NewHeader(deps.Title, deps.Subtitle),
		chatView:  components.NewChatView(),
		input:     input,
		statusBar: sb,
		spinner:   s,
		modal:     components.NewModal(),
	}
	m.applySnapshot(deps.Controller.Snapshot())
	return m
}

// Init starts the spinner and opens the assistant session.
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		initializeCmd(m.deps.Ctx, m.deps.Controller),
	)
}

// Update handles all incoming messages.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.modal.SetSize(m.width, m.height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case components.InputChangedMsg:
		m.deps.Controller.SetInput(msg.Value)
		return m, nil

	case components.InputSubmitMsg:
		return m.handleSubmit(msg.Value)

	case TranscriptMsg:
		m.applySnapshot(msg.Snapshot)
		return m, nil

	case InitDoneMsg:
		if msg.Err != nil {
			fe := uxerror.Humanize(msg.Err)
			m.offline = &fe
			m.deps.Logger.Debug("chat ui offline", "reason", fe.Title)
		}
		m.applySnapshot(m.deps.Controller.Snapshot())
		return m, nil

	case SubmitDoneMsg:
		if !msg.Accepted {
			m.flash("Message non envoyé", true)
		}
		m.applySnapshot(m.deps.Controller.Snapshot())
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.modal.Visible {
		var cmd tea.Cmd
		m.modal, cmd = m.modal.Update(msg)
		return m, tea.Batch(append(cmds, cmd)...)
	}

	if _, isMouse := msg.(tea.MouseMsg); !isMouse {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// applySnapshot redraws from s and gates the input on the controller state.
func (m *ChatModel) applySnapshot(s chatuc.Snapshot) {
	m.snap = s
	m.chatView.SetTurns(s.Turns, s.Busy)

	switch {
	case s.State == chatuc.StateAwaiting:
		m.header.Availability = components.AvailabilityConnecting
	case s.Available:
		m.header.Availability = components.AvailabilityOnline
	default:
		m.header.Availability = components.AvailabilityOffline
	}

	enabled := s.Available && !s.Busy && !m.scrollMode
	if enabled != m.input.Enabled {
		m.input.SetEnabled(enabled)
	}
	if s.Busy {
		m.statusBar.Extra = ""
	}
}

// View renders the entire chat UI.
func (m ChatModel) View() string {
	if m.quitting {
		return "À bientôt !\n"
	}
	if m.width == 0 {
		return "  Initialisation..."
	}
	if m.modal.Visible {
		return m.modal.View()
	}

	parts := []string{
		m.header.View(),
		m.chatView.View(),
		components.Divider(m.width),
		m.bottomView(),
		m.statusBar.View(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// bottomView is the input slot: the input itself, the busy line while a
// reply streams, or the offline notice once initialization failed.
func (m ChatModel) bottomView() string {
	switch {
	case m.snap.Busy:
		return theme.Dim.Render("> "+components.Placeholder) + "\n" +
			m.spinner.View() + " " + theme.TextInfo.Render(BusyText)
	case !m.snap.Available && m.offline != nil:
		return theme.Notice.Width(max(m.width-4, 20)).Render(
			theme.TextError.Render(m.offline.Title) + "\n" + m.offline.Message)
	case !m.snap.Available:
		return m.spinner.View() + " " + theme.TextMuted.Render(components.LabelConnecting)
	}
	return m.input.View()
}

// layout recalculates sizes for all sub-models.
func (m *ChatModel) layout() {
	headerH := 1
	inputH := 3
	statusH := 1
	dividerH := 1
	contentH := max(m.height-headerH-inputH-statusH-dividerH, 5)

	m.header.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.chatView.SetSize(m.width, contentH)
	m.input.SetWidth(m.width)
}

// isMouseEscapeLeak detects mouse escape sequences that leaked through as
// key input instead of tea.MouseMsg during fast trackpad scrolling: SGR
// ("<65;38;21M"), X11 ("[M...") and URXVT ("[65;38;21M").
func isMouseEscapeLeak(s string) bool {
	if len(s) >= 2 && s[0] == '[' && (s[1] == 'M' || s[1] == 'm') {
		return true
	}
	if len(s) < 5 || (s[0] != '<' && s[0] != '[') {
		return false
	}
	last := s[len(s)-1]
	if last != 'M' && (last != 'm' || s[0] != '<') {
		return false
	}
	for _, r := range s[1 : len(s)-1] {
		if r != ';' && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// handleKey processes keyboard input.
func (m ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if isMouseEscapeLeak(msg.String()) {
		return m, nil
	}

	if m.modal.Visible {
		var cmd tea.Cmd
		m.modal, cmd = m.modal.Update(msg)
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd

	case tea.KeyEsc:
		if !m.scrollMode && !m.input.Autocomplete.Visible {
			m.setScrollMode(true)
			return m, nil
		}
	}

	// Input unavailable: busy, offline or scrolling.
	if m.scrollMode || !m.input.Enabled {
		switch msg.String() {
		case "j", "down":
			m.chatView.ScrollDown(3)
		case "k", "up":
			m.chatView.ScrollUp(3)
		case "g":
			m.chatView.GotoTop()
		case "G":
			m.chatView.GotoBottom()
		case "i", "enter":
			if m.scrollMode {
				m.setScrollMode(false)
			}
		case "q":
			if !m.snap.Available {
				m.quitting = true
				return m, tea.Quit
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ChatModel) setScrollMode(on bool) {
	m.scrollMode = on
	if on {
		m.statusBar.Hints = scrollHints()
	} else {
		m.statusBar.Hints = defaultHints()
	}
	m.applySnapshot(m.snap)
}

// handleSubmit processes a submitted line. Slash commands stay local;
// anything else is sent to the assistant.
func (m ChatModel) handleSubmit(value string) (tea.Model, tea.Cmd) {
	m.deps.Controller.SetInput("")
	if cmd, args, ok := components.ParseSlashCommand(value); ok {
		return m.handleSlashCommand(cmd, args)
	}

	m.statusBar.Extra = ""
	if s := m.deps.Controller.Snapshot(); !s.Available || s.Busy {
		m.flash("Assistant indisponible", true)
		return m, nil
	}

	// Follow the reply as it streams in.
	m.chatView.GotoBottom()
	return m, submitCmd(m.deps.Ctx, m.deps.Controller, value)
}

// handleSlashCommand processes a slash command.
func (m ChatModel) handleSlashCommand(cmd string, _ []string) (tea.Model, tea.Cmd) {
	switch cmd {
	case "/aide", "/help", "/?":
		m.modal.SetSize(m.width, m.height)
		m.modal.OpenMarkdown("Aide", helpText)
		return m, nil

	case "/profil", "/profile":
		if m.deps.Profile == "" {
			m.flash("Profil non disponible", true)
			return m, nil
		}
		m.modal.SetSize(m.width, m.height)
		m.modal.OpenMarkdown("Profil", m.deps.Profile)
		return m, nil

	case "/quitter", "/quit", "/exit":
		m.quitting = true
		return m, tea.Quit

	default:
		m.flash(fmt.Sprintf("Commande inconnue : %s (tapez /aide)", cmd), true)
		return m, nil
	}
}

func (m *ChatModel) flash(text string, alert bool) {
	m.statusBar.Extra = text
	m.statusBar.Alert = alert
}

var helpText = strings.TrimSpace(`
## Commandes

| Commande | Action |
|---|---|
| /aide | Afficher cette aide |
| /profil | Afficher le profil |
| /quitter | Quitter |

## Raccourcis

| Touche | Action |
|---|---|
| Entrée | Envoyer |
| Alt+Entrée | Nouvelle ligne |
| Échap | Mode défilement (j/k, g/G, i pour revenir) |
| PgUp/PgDn | Défiler |
| Ctrl+C | Quitter |
`)

func defaultHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "Entrée", Desc: "Envoyer"},
		{Key: "Échap", Desc: "Défiler"},
		{Key: "/aide", Desc: "Aide"},
		{Key: "Ctrl+C", Desc: "Quitter"},
	}
}

func scrollHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "j/k", Desc: "Défiler"},
		{Key: "g/G", Desc: "Début/fin"},
		{Key: "i", Desc: "Saisie"},
	}
}
