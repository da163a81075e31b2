package main

import (
	"fmt"
	"log/slog"

	"folio/internal/adapter/llm"
	"folio/internal/domain"
	"folio/internal/infra/config"
	"folio/internal/portfolio"
	chatuc "folio/internal/usecase/chat"
)

// app holds the wired chat core shared by the TUI and the headless commands.
type app struct {
	Catalog    *portfolio.Catalog
	Client     domain.SessionClient
	Controller *chatuc.Controller
}

// loadCatalog returns the configured catalog, or the built-in one.
func loadCatalog(cfg *config.Config) (*portfolio.Catalog, error) {
	if cfg.Portfolio.Path == "" {
		return portfolio.Default(), nil
	}
	c, err := portfolio.Load(cfg.Portfolio.Path)
	if err != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}
	return c, nil
}

// newSessionClient builds the Gemini client, wrapped in a circuit breaker
// when enabled.
func newSessionClient(cfg config.AssistantConfig, log *slog.Logger) domain.SessionClient {
	var client domain.SessionClient = llm.NewGeminiClient(cfg, log)
	if cfg.CircuitBreaker.Enabled {
		client = llm.NewCircuitBreakerClient(client, cfg.CircuitBreaker, log)
	}
	return client
}

// buildApp wires catalog, client and controller. The controller is not
// initialized; callers decide when the session opens.
func buildApp(cfg *config.Config, log *slog.Logger, onChange func(chatuc.Snapshot)) (*app, error) {
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	client := newSessionClient(cfg.Assistant, log)
	ctrl := chatuc.NewController(chatuc.ControllerDeps{
		Client:        client,
		Persona:       catalog.Persona(cfg.Assistant.Model, cfg.Assistant.MapsGrounding),
		Greeting:      cfg.Chat.Greeting,
		ErrorMessage:  cfg.Chat.ErrorMessage,
		CitationLabel: cfg.Chat.CitationLabel,
		Logger:        log.With("component", "chat"),
		OnChange:      onChange,
	})

	return &app{Catalog: catalog, Client: client, Controller: ctrl}, nil
}
