package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"folio/internal/adapter/llm"
	"folio/internal/domain"
	"folio/internal/infra/config"
	"folio/internal/infra/logger"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// pingTimeout bounds the connectivity check.
const pingTimeout = 10 * time.Second

// runDoctor executes all health checks and reports results on stdout.
func runDoctor() error {
	cfgPath := configPath()
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "API key", Fn: checkAPIKey},
		{Name: "Assistant connectivity", Fn: checkConnectivity},
		{Name: "Portfolio", Fn: checkPortfolio},
		{Name: "Log file", Fn: checkLogDir(logger.DefaultDir())},
	}
	return doctor(os.Stdout, cfg, checks)
}

func doctor(w io.Writer, cfg *config.Config, checks []Check) error {
	fmt.Fprintln(w, "folio doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		fmt.Fprintln(w, "\nFix the FAIL issues above before opening the chat.")
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn > 0 {
		fmt.Fprintln(w, "\nfolio should work, but consider addressing the warnings.")
	} else {
		fmt.Fprintln(w, "\nAll checks passed! folio is ready to run.")
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

var notLoaded = CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}

// checkConfigFile returns a check on the config file. A missing file is only
// a warning since the defaults apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Check the YAML syntax and permissions of %s", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s, using defaults", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkAPIKey verifies a key reached the assistant config.
func checkAPIKey(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	key := strings.TrimSpace(cfg.Assistant.APIKey)
	if key == "" {
		return CheckResult{
			Status:  StatusFail,
			Message: "no API key configured",
			Fix:     "Set GEMINI_API_KEY (or FOLIO_ASSISTANT_API_KEY) in your environment",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("API key configured (%s)", maskKey(key)),
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 4) + key[len(key)-4:]
}

// checkConnectivity asks the API for the configured model's metadata.
func checkConnectivity(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	if strings.TrimSpace(cfg.Assistant.APIKey) == "" {
		return CheckResult{Status: StatusWarn, Message: "skipped, no API key"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	client := llm.NewGeminiClient(cfg.Assistant, nil)
	start := time.Now()
	err := client.Ping(ctx, cfg.Assistant.Model)
	latency := time.Since(start)

	var se *llm.StatusError
	switch {
	case err == nil:
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("%s reachable (latency: %dms)", cfg.Assistant.Model, latency.Milliseconds()),
		}
	case errors.Is(err, domain.ErrAuthInvalid):
		return CheckResult{
			Status:  StatusFail,
			Message: "API key rejected",
			Fix:     "Create a new key in Google AI Studio and update GEMINI_API_KEY",
		}
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("model %q not found", cfg.Assistant.Model),
			Fix:     "Set assistant.model to a model available to your key",
		}
	case errors.Is(err, domain.ErrRateLimit):
		return CheckResult{
			Status:  StatusWarn,
			Message: "reachable, but rate limited right now",
		}
	default:
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot reach the assistant API: %v", err),
			Fix:     "Check your internet connection and assistant.base_url",
		}
	}
}

// checkPortfolio loads the catalog the chat would use.
func checkPortfolio(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     "Fix portfolio.path or remove it to use the built-in catalog",
		}
	}
	source := "built-in"
	if cfg.Portfolio.Path != "" {
		source = cfg.Portfolio.Path
	}
	return CheckResult{
		Status: StatusPass,
		Message: fmt.Sprintf("%s (%s): %d projects, %d services",
			catalog.DisplayName(), source, len(catalog.Projects), len(catalog.Services)),
	}
}

// checkLogDir returns a check that the chat's log file location is writable.
func checkLogDir(defaultDir string) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return notLoaded
		}
		output := logger.ForTerminalUI(cfg.Logger, defaultDir).Output
		if strings.EqualFold(output, "discard") {
			return CheckResult{Status: StatusPass, Message: "logging disabled"}
		}

		dir := filepath.Dir(output)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("cannot create %s: %v", dir, err),
				Fix:     "Set logger.output to a writable file",
			}
		}
		probe := filepath.Join(dir, ".doctor-check")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("%s is not writable: %v", dir, err),
				Fix:     "Set logger.output to a writable file",
			}
		}
		os.Remove(probe)

		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("logs go to %s", output)}
	}
}
