package chat

import (
	"context"
	"log/slog"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	chatuc "folio/internal/usecase/chat"
)

// Options configure the widget chrome.
type Options struct {
	Title     string // header title; "Assistant IA" when empty
	Subtitle  string // e.g. the portfolio owner's name
	ModelName string // shown in the status bar
	Profile   string // markdown profile card for /profil
	AltScreen bool
}

// TUIChannel runs the chat widget as a Bubble Tea program and bridges
// controller change notifications into its update loop.
type TUIChannel struct {
	logger  *slog.Logger
	opts    Options
	program atomic.Pointer[tea.Program]
}

// NewTUIChannel creates a new terminal chat channel.
func NewTUIChannel(logger *slog.Logger, opts Options) *TUIChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &TUIChannel{logger: logger, opts: opts}
}

// SetProfile sets the header subtitle and the markdown card behind /profil.
func (c *TUIChannel) SetProfile(owner, card string) {
	c.opts.Subtitle = owner
	c.opts.Profile = card
}

// Notify forwards a snapshot into the running program. It is meant to be
// installed as the controller's OnChange callback and must not be called
// from inside the program's update loop. Snapshots that arrive before Start
// or after the program exits are dropped; the model reads a fresh snapshot
// when it starts.
func (c *TUIChannel) Notify(s chatuc.Snapshot) {
	if p := c.program.Load(); p != nil {
		p.Send(TranscriptMsg{Snapshot: s})
	}
}

// Start creates the Bubble Tea program and blocks until it exits. The
// controller is initialized by the widget itself once it is mounted.
func (c *TUIChannel) Start(ctx context.Context, ctrl Controller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewChatModel(ChatModelDeps{
		Ctx:        ctx,
		Controller: ctrl,
		Logger:     c.logger,
		Title:      c.opts.Title,
		Subtitle:   c.opts.Subtitle,
		ModelName:  c.opts.ModelName,
		Profile:    c.opts.Profile,
	})

	progOpts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if c.opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(model, progOpts...)
	c.program.Store(p)
	defer c.program.Store(nil)

	// Quit on parent cancellation. Also cancels the in-flight submit once
	// the program returns.
	go func() {
		<-ctx.Done()
		p.Send(QuitMsg{})
	}()

	c.logger.Debug("chat ui started")
	_, err := p.Run()
	return err
}

// Stop signals the Bubble Tea program to quit.
func (c *TUIChannel) Stop(_ context.Context) error {
	if p := c.program.Load(); p != nil {
		p.Send(QuitMsg{})
	}
	return nil
}
