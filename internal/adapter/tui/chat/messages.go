// Package chat implements the Bubble Tea chat widget for folio. It renders
// controller snapshots and forwards user input; all conversation state lives
// in the controller.
package chat

import chatuc "folio/internal/usecase/chat"

// TranscriptMsg carries a controller snapshot into the update loop. It is
// injected by TUIChannel.Notify from the controller's goroutine.
type TranscriptMsg struct {
	Snapshot chatuc.Snapshot
}

// InitDoneMsg signals that session initialization finished.
type InitDoneMsg struct {
	Err error
}

// SubmitDoneMsg signals that a send-and-stream cycle resolved. Accepted is
// false when the controller rejected the submission.
type SubmitDoneMsg struct {
	Accepted bool
}

// QuitMsg signals the program to exit.
type QuitMsg struct{}
