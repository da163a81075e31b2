package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// initializeCmd opens the assistant session in the background.
func initializeCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return InitDoneMsg{Err: ctrl.Initialize(ctx)}
	}
}

// submitCmd sends one user turn and blocks until the reply stream
// resolves. Progress reaches the model through TranscriptMsg.
func submitCmd(ctx context.Context, ctrl Controller, text string) tea.Cmd {
	return func() tea.Msg {
		return SubmitDoneMsg{Accepted: ctrl.Submit(ctx, text)}
	}
}
