// Package integration holds end-to-end tests against the live assistant API.
// They only build with -tags integration and skip without GEMINI_API_KEY.
package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"folio/internal/adapter/llm"
	"folio/internal/infra/config"
	"folio/internal/portfolio"
	chatuc "folio/internal/usecase/chat"
)

// Config holds integration test configuration from environment
type Config struct {
	GeminiKey   string
	Model       string
	TestTimeout time.Duration
	SkipSlow    bool
}

// LoadConfig loads integration test configuration from environment
func LoadConfig() *Config {
	model := os.Getenv("FOLIO_TEST_MODEL")
	if model == "" {
		model = config.Defaults().Assistant.Model
	}
	return &Config{
		GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		Model:       model,
		TestTimeout: 60 * time.Second,
		SkipSlow:    os.Getenv("SKIP_SLOW_TESTS") == "1",
	}
}

// SkipIfNoAPIKey skips the test if the required API key is not set
func SkipIfNoAPIKey(t *testing.T, key, name string) {
	t.Helper()
	if key == "" {
		t.Skipf("Skipping %s integration test: %s_API_KEY not set", name, name)
	}
}

// SkipIfShort skips integration tests in short mode
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// NewTestContext creates a context with timeout for integration tests
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewController wires the built-in portfolio and a live Gemini client into
// an uninitialized controller.
func NewController(t *testing.T, cfg *Config, apiKey string, maps bool) *chatuc.Controller {
	t.Helper()
	assistant := config.Defaults().Assistant
	assistant.APIKey = apiKey
	assistant.Model = cfg.Model

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if testing.Verbose() {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return chatuc.NewController(chatuc.ControllerDeps{
		Client:  llm.NewGeminiClient(assistant, log),
		Persona: portfolio.Default().Persona(cfg.Model, maps),
		Logger:  log,
	})
}
