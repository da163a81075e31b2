package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"folio/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSession replays one scripted stream per StreamTurn call.
type mockSession struct {
	mu       sync.Mutex
	streams  [][]domain.ResponseChunk
	openErr  error
	callIdx  int
	received []string
	// onChunk, if set, runs before each chunk is delivered (unbuffered).
	onChunk func(i int)
}

func (m *mockSession) ID() string { return "test-session" }

func (m *mockSession) StreamTurn(_ context.Context, userText string) (<-chan domain.ResponseChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, userText)
	if m.openErr != nil {
		return nil, m.openErr
	}
	var chunks []domain.ResponseChunk
	if m.callIdx < len(m.streams) {
		chunks = m.streams[m.callIdx]
	}
	m.callIdx++

	ch := make(chan domain.ResponseChunk)
	onChunk := m.onChunk
	go func() {
		defer close(ch)
		for i, c := range chunks {
			if onChunk != nil {
				onChunk(i)
			}
			ch <- c
		}
	}()
	return ch, nil
}

type mockClient struct {
	session domain.SessionHandle
	err     error
	calls   int
	persona domain.PersonaConfig
}

func (m *mockClient) CreateSession(_ context.Context, p domain.PersonaConfig) (domain.SessionHandle, error) {
	m.calls++
	m.persona = p
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

// recorder collects every snapshot published through OnChange.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

func newReadyController(t *testing.T, session *mockSession, rec *recorder) *Controller {
	t.Helper()
	deps := ControllerDeps{
		Client:  &mockClient{session: session},
		Persona: domain.PersonaConfig{Model: "test-model", MapsGrounding: true},
		Logger:  newTestLogger(),
	}
	if rec != nil {
		deps.OnChange = rec.record
	}
	c := NewController(deps)
	require.NoError(t, c.Initialize(context.Background()))
	return c
}

func TestNewControllerSeedsGreeting(t *testing.T) {
	c := NewController(ControllerDeps{Logger: newTestLogger()})
	snap := c.Snapshot()
	require.Len(t, snap.Turns, 1)
	assert.Equal(t, domain.SpeakerModel, snap.Turns[0].Speaker)
	assert.Equal(t, DefaultGreeting, snap.Turns[0].Text)
	assert.Equal(t, StateAwaiting, snap.State)
	assert.False(t, snap.Available)
}

func TestInitializePassesPersona(t *testing.T) {
	client := &mockClient{session: &mockSession{}}
	persona := domain.PersonaConfig{Model: "m", SystemInstruction: "sys", MapsGrounding: true}
	c := NewController(ControllerDeps{Client: client, Persona: persona, Logger: newTestLogger()})

	require.NoError(t, c.Initialize(context.Background()))
	assert.Equal(t, persona, client.persona)
	assert.Equal(t, StateIdle, c.State())
}

func TestInitializeTwiceIsRejected(t *testing.T) {
	client := &mockClient{session: &mockSession{}}
	c := NewController(ControllerDeps{Client: client, Logger: newTestLogger()})

	require.NoError(t, c.Initialize(context.Background()))
	err := c.Initialize(context.Background())
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)
	assert.Equal(t, 1, client.calls)
}

func TestInitializeFailureMakesControllerUnavailable(t *testing.T) {
	client := &mockClient{err: domain.ErrMissingCredential}
	c := NewController(ControllerDeps{Client: client, Logger: newTestLogger()})

	err := c.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInit)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Equal(t, StateUnavailable, c.State())

	c.SetInput("Bonjour")
	assert.False(t, c.CanSubmit())
	assert.False(t, c.Submit(context.Background(), "Bonjour"))
	assert.False(t, c.Send(context.Background()))

	snap := c.Snapshot()
	require.Len(t, snap.Turns, 1)
	assert.Equal(t, DefaultGreeting, snap.Turns[0].Text)
	assert.False(t, snap.CanSubmit)
}

func TestInitializeNilClient(t *testing.T) {
	c := NewController(ControllerDeps{Logger: newTestLogger()})
	err := c.Initialize(context.Background())
	assert.ErrorIs(t, err, domain.ErrInit)
	assert.Equal(t, StateUnavailable, c.State())
}

func TestSubmitAccumulatesDeltas(t *testing.T) {
	session := &mockSession{streams: [][]domain.ResponseChunk{{
		{TextDelta: "Bon"},
		{TextDelta: "jour"},
		{},
		{TextDelta: " Paul"},
	}}}
	rec := &recorder{}
	c := newReadyController(t, session, rec)

	require.True(t, c.Submit(context.Background(), "Salut"))

	snap := c.Snapshot()
	require.Len(t, snap.Turns, 3)
	assert.Equal(t, domain.SpeakerUser, snap.Turns[1].Speaker)
	assert.Equal(t, "Salut", snap.Turns[1].Text)
	assert.Equal(t, domain.SpeakerModel, snap.Turns[2].Speaker)
	assert.Equal(t, "Bonjour Paul", snap.Turns[2].Text)
	assert.False(t, snap.Turns[2].IsError)
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.Busy)

	// Each published trailing text is a prefix-growing accumulation.
	var texts []string
	for _, s := range rec.all() {
		if len(s.Turns) == 3 && s.State == StateStreaming && s.Turns[2].Text != "" {
			texts = append(texts, s.Turns[2].Text)
		}
	}
	assert.Equal(t, []string{"Bon", "Bonjour", "Bonjour Paul"}, texts)
}

func TestSubmitAppendsCitationsInOrder(t *testing.T) {
	session := &mockSession{streams: [][]domain.ResponseChunk{{
		{TextDelta: "Nos bureaux :"},
		{Citations: []domain.CitationLink{
			{Label: "Mfilou", URI: "https://maps.example/1"},
			{Label: "no uri"},
			{URI: "https://maps.example/2"},
		}},
		{TextDelta: " Fin."},
	}}}
	c := newReadyController(t, session, nil)

	require.True(t, c.Submit(context.Background(), "Où ?"))

	want := "Nos bureaux :" +
		"\n\n[Voir sur la carte](https://maps.example/1)" +
		"\n\n[Voir sur la carte](https://maps.example/2)" +
		" Fin."
	assert.Equal(t, want, c.Snapshot().Turns[2].Text)
}

func TestSubmitCustomCitationLabel(t *testing.T) {
	session := &mockSession{streams: [][]domain.ResponseChunk{{
		{Citations: []domain.CitationLink{{Label: "<script>", URI: "https://maps.example/1"}}},
	}}}
	c := NewController(ControllerDeps{
		Client:        &mockClient{session: session},
		CitationLabel: "View on map",
		Logger:        newTestLogger(),
	})
	require.NoError(t, c.Initialize(context.Background()))
	require.True(t, c.Submit(context.Background(), "where"))
	assert.Equal(t, "\n\n[View on map](https://maps.example/1)", c.Snapshot().Turns[2].Text)
}

func TestSubmitBlankIsNoop(t *testing.T) {
	session := &mockSession{}
	rec := &recorder{}
	c := newReadyController(t, session, rec)
	before := len(rec.all())

	for _, in := range []string{"", "   ", "\n\t "} {
		assert.False(t, c.Submit(context.Background(), in))
	}

	snap := c.Snapshot()
	assert.Len(t, snap.Turns, 1)
	assert.False(t, snap.Busy)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, before, len(rec.all()))
	assert.Empty(t, session.received)
}

func TestSubmitBeforeInitializeIsNoop(t *testing.T) {
	c := NewController(ControllerDeps{Client: &mockClient{session: &mockSession{}}, Logger: newTestLogger()})
	assert.False(t, c.Submit(context.Background(), "hello"))
	assert.Len(t, c.Snapshot().Turns, 1)
}

func TestSubmitKeepsRawUserText(t *testing.T) {
	session := &mockSession{streams: [][]domain.ResponseChunk{{{TextDelta: "ok"}}}}
	c := newReadyController(t, session, nil)

	require.True(t, c.Submit(context.Background(), "  Bonjour  "))
	assert.Equal(t, "  Bonjour  ", c.Snapshot().Turns[1].Text)
	assert.Equal(t, []string{"  Bonjour  "}, session.received)
}

func TestSubmitEmptyStreamLeavesEmptyModelTurn(t *testing.T) {
	session := &mockSession{streams: [][]domain.ResponseChunk{{}}}
	c := newReadyController(t, session, nil)

	require.True(t, c.Submit(context.Background(), "hello"))
	snap := c.Snapshot()
	require.Len(t, snap.Turns, 3)
	assert.Equal(t, "", snap.Turns[2].Text)
	assert.False(t, snap.Turns[2].IsError)
	assert.Equal(t, StateIdle, snap.State)
}

func TestSubmitMidStreamFailureKeepsPartialTurn(t *testing.T) {
	session := &mockSession{streams: [][]domain.ResponseChunk{{
		{TextDelta: "Bonj"},
		{TextDelta: "our"},
		{Err: errors.New("connection reset")},
	}}}
	rec := &recorder{}
	c := newReadyController(t, session, rec)

	require.True(t, c.Submit(context.Background(), "Salut"))

	snap := c.Snapshot()
	require.Len(t, snap.Turns, 4)
	assert.Equal(t, "Bonjour", snap.Turns[2].Text)
	assert.False(t, snap.Turns[2].IsError)
	assert.Equal(t, DefaultErrorMessage, snap.Turns[3].Text)
	assert.True(t, snap.Turns[3].IsError)
	assert.Equal(t, domain.SpeakerModel, snap.Turns[3].Speaker)
	assert.Equal(t, StateIdle, snap.State)

	var sawErrorReported bool
	for _, s := range rec.all() {
		if s.State == StateErrorReported {
			sawErrorReported = true
			assert.True(t, s.Busy)
		}
	}
	assert.True(t, sawErrorReported)
}

func TestSubmitOpenFailureAppendsErrorTurn(t *testing.T) {
	session := &mockSession{openErr: domain.TransportError("test", domain.ErrAuthInvalid)}
	c := newReadyController(t, session, nil)

	require.True(t, c.Submit(context.Background(), "hello"))

	snap := c.Snapshot()
	require.Len(t, snap.Turns, 4)
	assert.Equal(t, "", snap.Turns[2].Text)
	assert.True(t, snap.Turns[3].IsError)
	assert.NotContains(t, snap.Turns[3].Text, "authentication")
	assert.Equal(t, StateIdle, snap.State)
}

func TestSubmitSpanMarksErrorTurn(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	session := &mockSession{streams: [][]domain.ResponseChunk{
		{{TextDelta: "ok"}},
		{{Err: errors.New("reset")}},
	}}
	c := newReadyController(t, session, nil)
	require.True(t, c.Submit(context.Background(), "un"))
	require.True(t, c.Submit(context.Background(), "deux"))

	var got []bool
	for _, span := range sr.Ended() {
		if span.Name() != "chat.submit" {
			continue
		}
		for _, kv := range span.Attributes() {
			if kv.Key == "chat.error_turn" {
				got = append(got, kv.Value.AsBool())
			}
		}
	}
	assert.Equal(t, []bool{false, true}, got)
}

func TestSubmitRecoversAfterError(t *testing.T) {
	session := &mockSession{streams: [][]domain.ResponseChunk{
		{{Err: errors.New("boom")}},
		{{TextDelta: "second try"}},
	}}
	c := newReadyController(t, session, nil)

	require.True(t, c.Submit(context.Background(), "one"))
	require.True(t, c.Submit(context.Background(), "two"))

	snap := c.Snapshot()
	require.Len(t, snap.Turns, 6)
	assert.Equal(t, "second try", snap.Turns[5].Text)
}

func TestCanSubmitFalseWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	session := &mockSession{
		streams: [][]domain.ResponseChunk{{{TextDelta: "a"}, {TextDelta: "b"}}},
		onChunk: func(i int) {
			if i == 0 {
				close(started)
				<-release
			}
		},
	}
	c := newReadyController(t, session, nil)

	c.SetInput("first")
	require.True(t, c.CanSubmit())

	done := make(chan bool)
	go func() { done <- c.Send(context.Background()) }()

	<-started
	c.SetInput("second")
	assert.False(t, c.CanSubmit())
	assert.True(t, c.Busy())
	assert.Equal(t, StateStreaming, c.State())
	assert.False(t, c.Submit(context.Background(), "concurrent"))

	close(release)
	require.True(t, <-done)

	assert.True(t, c.CanSubmit())
	assert.False(t, c.Busy())
	assert.Equal(t, []string{"first"}, session.received)
	assert.Equal(t, "second", c.Input())
}

func TestCanSubmitFalseDuringEverySnapshotOfSubmit(t *testing.T) {
	session := &mockSession{streams: [][]domain.ResponseChunk{{{TextDelta: "x"}, {Err: errors.New("bad")}}}}
	rec := &recorder{}
	c := newReadyController(t, session, rec)
	c.SetInput("hello")
	before := len(rec.all())

	require.True(t, c.Send(context.Background()))

	snaps := rec.all()[before:]
	require.NotEmpty(t, snaps)
	for _, s := range snaps[:len(snaps)-1] {
		assert.False(t, s.CanSubmit)
	}
	last := snaps[len(snaps)-1]
	assert.Equal(t, StateIdle, last.State)
}

func TestSendClearsInput(t *testing.T) {
	session := &mockSession{streams: [][]domain.ResponseChunk{{{TextDelta: "ok"}}}}
	c := newReadyController(t, session, nil)

	c.SetInput("  ")
	assert.False(t, c.CanSubmit())
	assert.False(t, c.Send(context.Background()))

	c.SetInput("Qui est Paul ?")
	require.True(t, c.Send(context.Background()))
	assert.Equal(t, "", c.Input())
	assert.Equal(t, "Qui est Paul ?", c.Snapshot().Turns[1].Text)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting", StateAwaiting.String())
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "unavailable", StateUnavailable.String())
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "error_reported", StateErrorReported.String())
	assert.Equal(t, "unknown", State(99).String())
}
