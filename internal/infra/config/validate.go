package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
// A missing API key is not checked here: it surfaces as an
// init failure when the chat session is created.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAssistant(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validProviders = map[string]bool{
	"gemini": true,
}

func validateAssistant(cfg *Config, ve *ValidationError) {
	a := cfg.Assistant
	if !validProviders[a.Provider] {
		ve.Add("assistant.provider %q is not supported (want gemini)", a.Provider)
	}
	if strings.TrimSpace(a.Model) == "" {
		ve.Add("assistant.model must not be empty")
	}
	if a.BaseURL != "" {
		u, err := url.Parse(a.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			ve.Add("assistant.base_url %q must be an absolute http(s) URL", a.BaseURL)
		}
	}
	if a.ConnTimeout < 0 {
		ve.Add("assistant.conn_timeout must be >= 0")
	}
	if a.RespTimeout < 0 {
		ve.Add("assistant.resp_timeout must be >= 0")
	}
	if a.CircuitBreaker.Enabled && a.CircuitBreaker.Timeout < 0 {
		ve.Add("assistant.circuit_breaker.timeout must be >= 0")
	}
}

var validLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is invalid (want text or json)", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
	}
}
