package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"folio/internal/domain"
	"folio/internal/infra/config"
	"folio/internal/infra/tracer"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient implements domain.SessionClient for the Google Gemini API.
type GeminiClient struct {
	apiKey         string
	baseURL        string
	fallbackModels []string
	client         *http.Client
	logger         *slog.Logger
}

// NewGeminiClient creates a session client for the Google Gemini API.
func NewGeminiClient(cfg config.AssistantConfig, logger *slog.Logger) *GeminiClient {
	return NewGeminiClientWithHTTP(cfg, NewHTTPClient(cfg), logger)
}

// NewGeminiClientWithHTTP is NewGeminiClient with a caller-supplied HTTP client.
func NewGeminiClientWithHTTP(cfg config.AssistantConfig, httpClient *http.Client, logger *slog.Logger) *GeminiClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiClient{
		apiKey:         strings.TrimSpace(cfg.APIKey),
		baseURL:        baseURL,
		fallbackModels: cfg.FallbackModels,
		client:         httpClient,
		logger:         logger,
	}
}

// CreateSession implements domain.SessionClient. It validates the persona and
// credential locally; the first network call happens on StreamTurn.
func (c *GeminiClient) CreateSession(ctx context.Context, persona domain.PersonaConfig) (domain.SessionHandle, error) {
	const op = "Gemini.CreateSession"
	if c.apiKey == "" {
		return nil, domain.InitError(op, fmt.Errorf("gemini: %w", domain.ErrMissingCredential))
	}
	model := strings.TrimSpace(persona.Model)
	if model == "" {
		return nil, domain.InitError(op, fmt.Errorf("%w: model is required", domain.ErrInvalidInput))
	}

	models := []string{model}
	for _, m := range c.fallbackModels {
		if m = strings.TrimSpace(m); m != "" && m != model {
			models = append(models, m)
		}
	}

	s := &GeminiSession{
		id:     ulid.Make().String(),
		client: c,
		models: models,
		logger: c.logger,
	}
	if persona.SystemInstruction != "" {
		s.system = &geminiContent{Parts: []geminiPart{{Text: persona.SystemInstruction}}}
	}
	if persona.MapsGrounding {
		s.tools = []geminiTool{{GoogleMaps: &struct{}{}}}
	}

	c.logger.Debug("gemini session created", "session", s.id, "model", model, "maps", persona.MapsGrounding)
	return s, nil
}

// Ping fetches the model's metadata. It checks that the API is reachable,
// the key is accepted and the model exists, without generating anything.
func (c *GeminiClient) Ping(ctx context.Context, model string) error {
	if c.apiKey == "" {
		return fmt.Errorf("gemini: %w", domain.ErrMissingCredential)
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s", c.baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return mapHTTPError(resp.StatusCode, body)
	}
	return nil
}

// GeminiSession is one multi-turn conversation. The history only grows
// when a turn completes cleanly.
type GeminiSession struct {
	id     string
	client *GeminiClient
	models []string // primary first, then fallbacks
	system *geminiContent
	tools  []geminiTool
	logger *slog.Logger

	inFlight atomic.Bool

	mu      sync.Mutex
	history []geminiContent
}

// ID implements domain.SessionHandle.
func (s *GeminiSession) ID() string { return s.id }

// HistoryLen returns the number of committed contents (user and model).
func (s *GeminiSession) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// StreamTurn implements domain.SessionHandle.
func (s *GeminiSession) StreamTurn(ctx context.Context, userText string) (<-chan domain.ResponseChunk, error) {
	const op = "Gemini.StreamTurn"
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, domain.TransportError(op, domain.ErrStreamInFlight)
	}

	ctx, span := tracer.StartSpan(ctx, "llm.stream_turn",
		trace.WithAttributes(
			tracer.StringAttr("llm.session", s.id),
			tracer.IntAttr("llm.input_len", len(userText)),
		),
	)

	userContent := geminiContent{Role: "user", Parts: []geminiPart{{Text: userText}}}

	s.mu.Lock()
	req := geminiRequest{
		Contents:          append(append([]geminiContent(nil), s.history...), userContent),
		SystemInstruction: s.system,
		Tools:             s.tools,
	}
	s.mu.Unlock()

	body, err := json.Marshal(req)
	if err != nil {
		s.inFlight.Store(false)
		tracer.RecordError(span, err)
		span.End()
		return nil, domain.TransportError(op, fmt.Errorf("marshal request: %w", err))
	}

	httpResp, model, err := s.open(ctx, body)
	if err != nil {
		s.inFlight.Store(false)
		tracer.RecordError(span, err)
		span.End()
		return nil, domain.TransportError(op, err)
	}
	span.SetAttributes(tracer.StringAttr("llm.model", model))

	raw := parseSSEStream(ctx, httpResp.Body, parseGeminiChunk)
	out := make(chan domain.ResponseChunk, 16)

	go func() {
		defer close(out)
		defer s.inFlight.Store(false)
		defer span.End()

		var reply strings.Builder
		var failed error
		n := 0
		for chunk := range raw {
			n++
			if chunk.Err != nil {
				chunk.Err = domain.TransportError(op, chunk.Err)
				failed = chunk.Err
			}
			reply.WriteString(chunk.TextDelta)
			out <- chunk
		}
		span.SetAttributes(tracer.IntAttr("llm.chunks", n))

		if failed != nil {
			tracer.RecordError(span, failed)
			s.logger.Debug("gemini stream failed", "session", s.id, "model", model, "chunks", n, "error", failed)
			return
		}

		s.mu.Lock()
		s.history = append(s.history, userContent, geminiContent{
			Role:  "model",
			Parts: []geminiPart{{Text: reply.String()}},
		})
		s.mu.Unlock()

		tracer.SetOK(span)
		s.logger.Debug("gemini stream completed", "session", s.id, "model", model, "chunks", n, "reply_len", reply.Len())
	}()

	return out, nil
}

// open starts the SSE request on the first model that accepts it. Later
// models are only tried when the failure is one a different model might not
// have: rate limits, unknown models and server errors.
func (s *GeminiSession) open(ctx context.Context, body []byte) (*http.Response, string, error) {
	headers := map[string]string{"x-goog-api-key": s.client.apiKey}

	var lastErr error
	for i, model := range s.models {
		endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse",
			s.client.baseURL, url.PathEscape(model))

		resp, err := doStreamRequest(ctx, s.client.client, endpoint, body, headers)
		if err == nil {
			if i > 0 {
				s.logger.Info("gemini failover succeeded", "session", s.id, "model", model)
			}
			return resp, model, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryableOnFallback(err) || i == len(s.models)-1 {
			break
		}
		s.logger.Warn("gemini model failed, trying fallback",
			"session", s.id, "model", model, "next", s.models[i+1], "error", err)
	}
	return nil, "", lastErr
}

// --- Gemini API wire types ---

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text    string `json:"text"`
	Thought bool   `json:"thought,omitempty"`
}

type geminiTool struct {
	GoogleMaps *struct{} `json:"googleMaps,omitempty"`
}

type geminiStreamChunk struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	Error          *apiError             `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content           geminiContent            `json:"content"`
	FinishReason      string                   `json:"finishReason,omitempty"`
	GroundingMetadata *geminiGroundingMetadata `json:"groundingMetadata,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiGroundingMetadata struct {
	GroundingChunks []geminiGroundingChunk `json:"groundingChunks"`
}

type geminiGroundingChunk struct {
	Maps *geminiGroundingSource `json:"maps,omitempty"`
}

type geminiGroundingSource struct {
	URI     string `json:"uri"`
	Title   string `json:"title"`
	PlaceID string `json:"placeId,omitempty"`
}

// parseGeminiChunk converts one SSE payload into a ResponseChunk. Only the
// first candidate is read. Thought parts are not part of the reply.
func parseGeminiChunk(data []byte) (*domain.ResponseChunk, error) {
	var chunk geminiStreamChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, err
	}

	if chunk.Error != nil {
		return &domain.ResponseChunk{
			Err: fmt.Errorf("%w: %s %s", domain.ErrProviderError, chunk.Error.Status, chunk.Error.Message),
		}, nil
	}
	if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
		return &domain.ResponseChunk{
			Err: fmt.Errorf("%w: prompt blocked: %s", domain.ErrProviderError, chunk.PromptFeedback.BlockReason),
		}, nil
	}

	out := &domain.ResponseChunk{}
	if len(chunk.Candidates) == 0 {
		return out, nil
	}
	cand := chunk.Candidates[0]

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}
	out.TextDelta = text.String()

	if gm := cand.GroundingMetadata; gm != nil {
		for _, gc := range gm.GroundingChunks {
			if gc.Maps == nil {
				continue
			}
			out.Citations = append(out.Citations, domain.CitationLink{
				Label: gc.Maps.Title,
				URI:   gc.Maps.URI,
			})
		}
	}
	return out, nil
}

// Compile-time interface checks.
var (
	_ domain.SessionClient = (*GeminiClient)(nil)
	_ domain.SessionHandle = (*GeminiSession)(nil)
)
