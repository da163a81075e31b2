package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranscriptIsSeeded(t *testing.T) {
	tr := NewTranscript(NewTurn(SpeakerModel, "Bonjour"))
	require.Equal(t, 1, tr.Len())
	assert.Equal(t, SpeakerModel, tr.Last().Speaker)
	assert.Equal(t, "Bonjour", tr.Last().Text)
	assert.NotEmpty(t, tr.Last().ID)
}

func TestOpenTurnOverwrites(t *testing.T) {
	tr := NewTranscript(NewTurn(SpeakerModel, "hi"))
	tr.Append(NewTurn(SpeakerUser, "q"))
	ot := tr.OpenModelTurn()

	require.NoError(t, ot.SetText("Bonj"))
	require.NoError(t, ot.SetText("Bonjour"))
	assert.Equal(t, "Bonjour", tr.Last().Text)
	assert.Equal(t, "Bonjour", ot.Text())
	assert.Equal(t, 3, tr.Len())
}

func TestOpenTurnClosedRejectsWrites(t *testing.T) {
	tr := NewTranscript(NewTurn(SpeakerModel, "hi"))
	ot := tr.OpenModelTurn()
	require.NoError(t, ot.SetText("partial"))
	ot.Close()
	ot.Close()

	assert.ErrorIs(t, ot.SetText("more"), ErrTurnClosed)
	assert.Equal(t, "partial", tr.Last().Text)
}

func TestAppendClosesOpenTurn(t *testing.T) {
	tr := NewTranscript(NewTurn(SpeakerModel, "hi"))
	ot := tr.OpenModelTurn()
	require.NoError(t, ot.SetText("Bonjour"))

	tr.Append(NewErrorTurn("oops"))

	assert.True(t, ot.Closed())
	assert.ErrorIs(t, ot.SetText("x"), ErrTurnClosed)
	turns := tr.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "Bonjour", turns[1].Text)
	assert.True(t, turns[2].IsError)
}

func TestTurnsReturnsCopy(t *testing.T) {
	tr := NewTranscript(NewTurn(SpeakerModel, "hi"))
	turns := tr.Turns()
	turns[0].Text = "mutated"
	assert.Equal(t, "hi", tr.Last().Text)
}

func TestTurnIDsAreUnique(t *testing.T) {
	a := NewTurn(SpeakerUser, "a")
	b := NewTurn(SpeakerUser, "a")
	assert.NotEqual(t, a.ID, b.ID)
}
