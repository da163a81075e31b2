package domain

import (
	"context"
	"strings"
)

// DefaultCitationLabel is the display string used for every map link. The
// API-provided title is never shown.
const DefaultCitationLabel = "Voir sur la carte"

// CitationLink is a grounding reference attached to a response chunk.
type CitationLink struct {
	Label string `json:"label,omitempty"`
	URI   string `json:"uri"`
}

// ResponseChunk is one element of a streamed reply. Both fields may be
// empty. A chunk with Err set is the last element of a failed stream.
type ResponseChunk struct {
	TextDelta string         `json:"text_delta,omitempty"`
	Citations []CitationLink `json:"citations,omitempty"`
	Err       error          `json:"-"`
}

// PersonaConfig configures the assistant session.
type PersonaConfig struct {
	Model             string `json:"model"`
	SystemInstruction string `json:"system_instruction"`
	MapsGrounding     bool   `json:"maps_grounding"`
}

// SessionClient opens assistant sessions.
type SessionClient interface {
	// CreateSession opens one conversation. Failures wrap ErrInit.
	CreateSession(ctx context.Context, persona PersonaConfig) (SessionHandle, error)
}

// SessionHandle is one open conversation with the assistant.
type SessionHandle interface {
	// ID identifies the session in logs.
	ID() string
	// StreamTurn sends a user turn and returns a finite, non-restartable
	// channel of chunks. The channel is closed on completion; on failure the
	// last chunk carries Err. Failures wrap ErrTransport.
	StreamTurn(ctx context.Context, userText string) (<-chan ResponseChunk, error)
}

// FormatCitations renders every citation with a usable URI as a standalone
// markdown link line, in order, using label for the visible text.
func FormatCitations(citations []CitationLink, label string) string {
	if label == "" {
		label = DefaultCitationLabel
	}
	var sb strings.Builder
	for _, c := range citations {
		uri := strings.TrimSpace(c.URI)
		if uri == "" {
			continue
		}
		sb.WriteString("\n\n[")
		sb.WriteString(label)
		sb.WriteString("](")
		sb.WriteString(uri)
		sb.WriteString(")")
	}
	return sb.String()
}
