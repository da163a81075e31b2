// Package chat implements the chat session controller: it opens the
// assistant session, submits user turns, folds streamed chunks into the
// transcript and exposes busy/idle state to the presentation layer.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"folio/internal/domain"
	"folio/internal/infra/tracer"
)

// Default user-facing strings.
const (
	DefaultGreeting     = "Bonjour ! Je suis l'assistant virtuel de Paul. Je peux vous parler de son parcours, de ses compétences ou vous localiser ses bureaux. Que souhaitez-vous savoir ?"
	DefaultErrorMessage = "Désolé, j'ai rencontré une erreur. Veuillez réessayer."
)

// State is the controller lifecycle state.
type State int

const (
	StateAwaiting State = iota // session not created yet
	StateIdle
	StateUnavailable
	StateStreaming
	StateErrorReported
)

// String returns a human-readable label for the state.
func (s State) String() string {
	switch s {
	case StateAwaiting:
		return "awaiting"
	case StateIdle:
		return "idle"
	case StateUnavailable:
		return "unavailable"
	case StateStreaming:
		return "streaming"
	case StateErrorReported:
		return "error_reported"
	default:
		return "unknown"
	}
}

// Snapshot is the read-only view handed to renderers.
type Snapshot struct {
	Turns     []domain.Turn
	State     State
	Busy      bool
	CanSubmit bool
	Available bool // a session handle exists
}

// ControllerDeps are dependencies injected into the controller.
type ControllerDeps struct {
	Client        domain.SessionClient
	Persona       domain.PersonaConfig
	Greeting      string // seeded model turn; DefaultGreeting when empty
	ErrorMessage  string // text of the error turn; DefaultErrorMessage when empty
	CitationLabel string // visible text of map links; domain.DefaultCitationLabel when empty
	Logger        *slog.Logger
	OnChange      func(Snapshot) // called after every mutation, outside the lock
}

// Controller is the chat state machine. It is the only writer of its
// transcript. All methods are safe to call from multiple goroutines; the
// busy gate rejects a Submit while another is in flight.
type Controller struct {
	deps ControllerDeps

	mu         sync.Mutex
	state      State
	session    domain.SessionHandle
	transcript *domain.Transcript
	input      string
	initDone   bool
}

// NewController creates a controller in StateAwaiting with the greeting seeded.
func NewController(deps ControllerDeps) *Controller {
	if deps.Greeting == "" {
		deps.Greeting = DefaultGreeting
	}
	if deps.ErrorMessage == "" {
		deps.ErrorMessage = DefaultErrorMessage
	}
	if deps.CitationLabel == "" {
		deps.CitationLabel = domain.DefaultCitationLabel
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Controller{
		deps:       deps,
		state:      StateAwaiting,
		transcript: domain.NewTranscript(domain.NewTurn(domain.SpeakerModel, deps.Greeting)),
	}
}

// Initialize creates the assistant session. On failure the controller
// becomes permanently unavailable and every later Submit is ignored.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initDone {
		c.mu.Unlock()
		return domain.NewDomainError("Controller.Initialize", domain.ErrAlreadyInitialized, "")
	}
	c.initDone = true
	c.mu.Unlock()

	session, err := c.createSession(ctx)

	c.mu.Lock()
	if err != nil {
		c.state = StateUnavailable
		c.mu.Unlock()
		c.deps.Logger.Error("chat session init failed",
			"model", c.deps.Persona.Model,
			"code", domain.ErrorCodeOf(err),
			"error", err,
		)
		c.notify()
		return err
	}
	c.session = session
	c.state = StateIdle
	c.mu.Unlock()

	c.deps.Logger.Info("chat session ready", "session", session.ID(), "model", c.deps.Persona.Model)
	c.notify()
	return nil
}

func (c *Controller) createSession(ctx context.Context) (domain.SessionHandle, error) {
	if c.deps.Client == nil {
		return nil, domain.InitError("Controller.Initialize", domain.ErrSessionUnavailable)
	}
	session, err := c.deps.Client.CreateSession(ctx, c.deps.Persona)
	if err != nil {
		return nil, domain.InitError("Controller.Initialize", err)
	}
	if session == nil {
		return nil, domain.InitError("Controller.Initialize", domain.ErrSessionUnavailable)
	}
	return session, nil
}

// Submit sends one user turn and blocks until its stream resolves. It
// returns false without touching any state when the text is blank, no
// session exists, or another turn is in flight. Stream failures never
// propagate: they become an error turn in the transcript.
func (c *Controller) Submit(ctx context.Context, userText string) bool {
	c.mu.Lock()
	if strings.TrimSpace(userText) == "" || c.session == nil || c.state != StateIdle {
		c.mu.Unlock()
		return false
	}
	session := c.session
	c.transcript.Append(domain.NewTurn(domain.SpeakerUser, userText))
	c.state = StateStreaming
	open := c.transcript.OpenModelTurn()
	c.mu.Unlock()
	c.notify()

	ctx, span := tracer.StartSpan(ctx, "chat.submit",
		trace.WithAttributes(
			tracer.StringAttr("chat.session", session.ID()),
			tracer.IntAttr("chat.input_len", len(userText)),
		),
	)
	defer span.End()

	chunks, err := c.consume(ctx, session, userText, open)
	if err != nil {
		tracer.RecordError(span, err)
		c.deps.Logger.Warn("chat stream failed",
			"session", session.ID(),
			"chunks", chunks,
			"code", domain.ErrorCodeOf(err),
			"error", err,
		)
		c.mu.Lock()
		open.Close()
		c.transcript.Append(domain.NewErrorTurn(c.deps.ErrorMessage))
		c.state = StateErrorReported
		c.mu.Unlock()
		c.notify()
	} else {
		tracer.SetOK(span)
		c.mu.Lock()
		open.Close()
		c.mu.Unlock()
	}

	span.SetAttributes(
		tracer.IntAttr("chat.chunks", chunks),
		tracer.BoolAttr("chat.error_turn", err != nil),
	)

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.notify()
	return true
}

// consume reads the stream into the open turn. The accumulated text, never
// the bare delta, is written on every update.
func (c *Controller) consume(ctx context.Context, session domain.SessionHandle, userText string, open *domain.OpenTurn) (int, error) {
	ch, err := session.StreamTurn(ctx, userText)
	if err != nil {
		return 0, domain.TransportError("Controller.Submit", err)
	}

	var acc strings.Builder
	n := 0
	for chunk := range ch {
		n++
		if chunk.Err != nil {
			// Leave the producer unblocked if it still has buffered sends.
			go drain(ch)
			return n, domain.TransportError("Controller.Submit", chunk.Err)
		}

		changed := false
		if chunk.TextDelta != "" {
			acc.WriteString(chunk.TextDelta)
			changed = true
		}
		if links := domain.FormatCitations(chunk.Citations, c.deps.CitationLabel); links != "" {
			acc.WriteString(links)
			changed = true
		}
		if !changed {
			continue
		}

		c.mu.Lock()
		setErr := open.SetText(acc.String())
		c.mu.Unlock()
		if setErr != nil {
			return n, setErr
		}
		c.notify()
	}
	return n, nil
}

func drain(ch <-chan domain.ResponseChunk) {
	for range ch {
	}
}

// SetInput records the pending (unsent) input.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

// Input returns the pending input.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// CanSubmit reports whether the send affordance should be enabled: the
// controller is idle, a session exists and the pending input is not blank.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

func (c *Controller) canSubmitLocked() bool {
	return c.state == StateIdle && c.session != nil && strings.TrimSpace(c.input) != ""
}

// Send submits the pending input and clears it, mirroring the widget's
// send button.
func (c *Controller) Send(ctx context.Context) bool {
	c.mu.Lock()
	if !c.canSubmitLocked() {
		c.mu.Unlock()
		return false
	}
	text := c.input
	c.input = ""
	c.mu.Unlock()
	return c.Submit(ctx, text)
}

// Busy reports whether a send-and-stream cycle is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return isBusy(c.state)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a consistent copy of the renderable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Turns:     c.transcript.Turns(),
		State:     c.state,
		Busy:      isBusy(c.state),
		CanSubmit: c.canSubmitLocked(),
		Available: c.session != nil,
	}
}

func (c *Controller) notify() {
	if c.deps.OnChange == nil {
		return
	}
	c.deps.OnChange(c.Snapshot())
}

func isBusy(s State) bool {
	return s == StateStreaming || s == StateErrorReported
}
