// Package logger builds the process-wide slog logger. While the terminal UI
// owns the screen, terminal outputs are redirected to a log file so records
// never interleave with rendered frames.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"folio/internal/infra/config"
)

// DefaultFileName is the log file used when the UI takes over the terminal.
const DefaultFileName = "folio.log"

// New creates a configured *slog.Logger.
// The returned closer function should be deferred to flush/close file handles.
func New(cfg config.LoggerConfig) (*slog.Logger, func() error, error) {
	writer, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	return slog.New(handler).With("app", "folio"), closer, nil
}

// ForTerminalUI rewrites cfg so that terminal outputs go to a file under
// dir instead. File outputs and "discard" pass through unchanged.
func ForTerminalUI(cfg config.LoggerConfig, dir string) config.LoggerConfig {
	switch strings.ToLower(cfg.Output) {
	case "", "stderr", "stdout":
		cfg.Output = filepath.Join(dir, DefaultFileName)
	}
	return cfg
}

// DefaultDir returns the per-user directory for log files, falling back to
// the temp dir when no cache dir is available.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "folio")
	}
	return filepath.Join(os.TempDir(), "folio")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openOutput returns an io.Writer for the specified output target.
func openOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, noop, nil
	case "stderr", "":
		return os.Stderr, noop, nil
	case "discard", "none":
		return io.Discard, noop, nil
	default:
		if err := os.MkdirAll(filepath.Dir(output), 0o700); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}
