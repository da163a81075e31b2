package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Speaker identifies who authored a turn.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// Turn is one message in the transcript.
type Turn struct {
	ID        string    `json:"id"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	IsError   bool      `json:"is_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn builds a turn with a fresh ID.
func NewTurn(speaker Speaker, text string) Turn {
	return Turn{
		ID:        ulid.Make().String(),
		Speaker:   speaker,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// NewErrorTurn builds a model turn flagged as a failure notice.
func NewErrorTurn(text string) Turn {
	t := NewTurn(SpeakerModel, text)
	t.IsError = true
	return t
}

// Transcript is the ordered conversation. It is never empty: the seed turn
// is appended at construction. Only the trailing model turn may change, and
// only through the OpenTurn returned by OpenModelTurn.
//
// Transcript is not safe for concurrent use; its owner serializes access.
type Transcript struct {
	turns []Turn
	open  *OpenTurn
}

// NewTranscript creates a transcript seeded with one turn.
func NewTranscript(seed Turn) *Transcript {
	return &Transcript{turns: []Turn{seed}}
}

// Append adds a closed turn. Any open turn is closed first since it is no
// longer the last element.
func (t *Transcript) Append(turn Turn) {
	t.closeOpen()
	t.turns = append(t.turns, turn)
}

// OpenModelTurn appends an empty model turn and returns the handle used to
// fill it while its stream is open.
func (t *Transcript) OpenModelTurn() *OpenTurn {
	t.closeOpen()
	t.turns = append(t.turns, NewTurn(SpeakerModel, ""))
	ot := &OpenTurn{t: t, idx: len(t.turns) - 1}
	t.open = ot
	return ot
}

// Turns returns a copy of the turns in display order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int { return len(t.turns) }

// Last returns the trailing turn.
func (t *Transcript) Last() Turn { return t.turns[len(t.turns)-1] }

func (t *Transcript) closeOpen() {
	if t.open != nil {
		t.open.closed = true
		t.open = nil
	}
}

// OpenTurn is the explicit reference to the trailing model turn while its
// stream is open.
type OpenTurn struct {
	t      *Transcript
	idx    int
	closed bool
}

// SetText overwrites the open turn's text.
func (o *OpenTurn) SetText(text string) error {
	if o.closed || o.idx != len(o.t.turns)-1 {
		return ErrTurnClosed
	}
	o.t.turns[o.idx].Text = text
	return nil
}

// Text returns the current text of the turn.
func (o *OpenTurn) Text() string { return o.t.turns[o.idx].Text }

// Close freezes the turn. Closing twice is a no-op.
func (o *OpenTurn) Close() {
	if o.closed {
		return
	}
	o.closed = true
	if o.t.open == o {
		o.t.open = nil
	}
}

// Closed reports whether the turn can still be written.
func (o *OpenTurn) Closed() bool { return o.closed }
