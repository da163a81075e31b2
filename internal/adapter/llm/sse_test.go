package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"folio/internal/domain"
)

func textParser(data []byte) (*domain.ResponseChunk, error) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &domain.ResponseChunk{TextDelta: payload.Text}, nil
}

func collect(ch <-chan domain.ResponseChunk) []domain.ResponseChunk {
	var out []domain.ResponseChunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestParseSSEStreamBasic(t *testing.T) {
	raw := "data: {\"text\":\"hello\"}\n\ndata: {\"text\":\" world\"}\n\n"
	chunks := collect(parseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw)), textParser))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].TextDelta != "hello" || chunks[1].TextDelta != " world" {
		t.Errorf("chunks = %+v", chunks)
	}
	for _, c := range chunks {
		if c.Err != nil {
			t.Errorf("unexpected error chunk: %v", c.Err)
		}
	}
}

func TestParseSSEStreamDoneSentinel(t *testing.T) {
	raw := "data: {\"text\":\"a\"}\n\ndata: [DONE]\n\ndata: {\"text\":\"ignored\"}\n\n"
	chunks := collect(parseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw)), textParser))

	if len(chunks) != 1 || chunks[0].TextDelta != "a" {
		t.Fatalf("chunks = %+v, want only %q", chunks, "a")
	}
}

func TestParseSSEStreamSkipsCommentsAndOtherFields(t *testing.T) {
	raw := ": keep-alive\nevent: message\nid: 7\ndata:{\"text\":\"ok\"}\n\n"
	chunks := collect(parseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw)), textParser))

	if len(chunks) != 1 || chunks[0].TextDelta != "ok" {
		t.Fatalf("chunks = %+v", chunks)
	}
}

func TestParseSSEStreamNilChunkSkipped(t *testing.T) {
	raw := "data: {}\n\ndata: {}\n\n"
	chunks := collect(parseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw)), func([]byte) (*domain.ResponseChunk, error) {
		return nil, nil
	}))
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %+v", chunks)
	}
}

func TestParseSSEStreamMalformedPayloadEndsWithError(t *testing.T) {
	raw := "data: {\"text\":\"partial\"}\n\ndata: {not json\n\ndata: {\"text\":\"never\"}\n\n"
	chunks := collect(parseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw)), textParser))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %+v", chunks)
	}
	if chunks[0].TextDelta != "partial" {
		t.Errorf("first chunk = %+v", chunks[0])
	}
	if !errors.Is(chunks[1].Err, domain.ErrMalformedChunk) {
		t.Errorf("last chunk err = %v, want ErrMalformedChunk", chunks[1].Err)
	}
}

func TestParseSSEStreamParserErrorChunkIsTerminal(t *testing.T) {
	raw := "data: 1\n\ndata: 2\n\n"
	boom := errors.New("blocked")
	chunks := collect(parseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw)), func([]byte) (*domain.ResponseChunk, error) {
		return &domain.ResponseChunk{Err: boom}, nil
	}))
	if len(chunks) != 1 || !errors.Is(chunks[0].Err, boom) {
		t.Fatalf("chunks = %+v", chunks)
	}
}

type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestParseSSEStreamReadErrorEndsWithError(t *testing.T) {
	body := io.NopCloser(&failingReader{data: "data: {\"text\":\"Bonjour\"}\n\n"})
	chunks := collect(parseSSEStream(context.Background(), body, textParser))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %+v", chunks)
	}
	if chunks[0].TextDelta != "Bonjour" {
		t.Errorf("first chunk = %+v", chunks[0])
	}
	if chunks[1].Err == nil || !strings.Contains(chunks[1].Err.Error(), "connection reset") {
		t.Errorf("last chunk err = %v", chunks[1].Err)
	}
}

func TestParseSSEStreamContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		for i := 0; i < 100; i++ {
			if _, err := pw.Write([]byte("data: {\"text\":\"x\"}\n\n")); err != nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		pw.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	chunks := collect(parseSSEStream(ctx, pr, textParser))
	if time.Since(start) > time.Second {
		t.Fatal("stream was not cancelled promptly")
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least the terminal chunk")
	}
	last := chunks[len(chunks)-1]
	if !errors.Is(last.Err, context.DeadlineExceeded) {
		t.Errorf("last chunk err = %v, want deadline exceeded", last.Err)
	}
}
