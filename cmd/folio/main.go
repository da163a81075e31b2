package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"folio/internal/adapter/tui/chat"
	"folio/internal/adapter/tui/theme"
	"folio/internal/infra/config"
	"folio/internal/infra/logger"
	"folio/internal/infra/tracer"
)

func main() {
	flags, args := splitArgs(os.Args[1:])

	if hasFlag(flags, "--help", "-h") || (len(args) > 0 && args[0] == "help") {
		showUsage()
		return
	}

	if len(args) == 0 {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch args[0] {
	case "ask":
		code, err := runAsk(strings.Join(args[1:], " "))
		if err != nil {
			fmt.Fprintf(os.Stderr, "ask: %v\n", err)
		}
		os.Exit(code)
	case "profile":
		if err := runProfile(); err != nil {
			fmt.Fprintf(os.Stderr, "profile: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'folio --help' for usage information.\n", args[0])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`folio - portfolio assistant

USAGE:
    folio [COMMAND] [FLAGS]

COMMANDS:
    ask "<question>"   Ask one question and print the streamed answer
    profile            Print the portfolio profile card
    doctor             Run health checks on your setup

    (no command) - Open the chat in the terminal

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./folio.yaml)

    Flags go before the command. Use -- to pass a command that starts with "-".

CONFIGURATION:
    Config file: ./folio.yaml (optional; defaults apply when missing)
    Environment: FOLIO_* variables override config
    API key:     FOLIO_ASSISTANT_API_KEY, GEMINI_API_KEY or API_KEY

EXAMPLES:
    GEMINI_API_KEY=... folio
    folio ask "Quelles sont les compétences de Paul ?"
    folio --config /etc/folio.yaml doctor`)
}

// run opens the interactive chat widget.
func run() error {
	// 1. Config
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.UI.ASCIISymbols {
		theme.ForceASCII()
	}

	// 2. Logger & Tracer. The terminal belongs to the UI, so console
	// outputs are redirected to a file.
	log, logCloser, err := logger.New(logger.ForTerminalUI(cfg.Logger, logger.DefaultDir()))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	// 3. Portfolio, assistant client and controller
	ui := chat.NewTUIChannel(log, chat.Options{
		ModelName: cfg.Assistant.Model,
		AltScreen: cfg.UI.AltScreen,
	})
	app, err := buildApp(cfg, log, ui.Notify)
	if err != nil {
		return err
	}
	ui.SetProfile(app.Catalog.DisplayName(), app.Catalog.Markdown())

	log.Info("folio starting",
		"model", cfg.Assistant.Model,
		"fallbacks", len(cfg.Assistant.FallbackModels),
		"maps_grounding", cfg.Assistant.MapsGrounding,
		"circuit_breaker", cfg.Assistant.CircuitBreaker.Enabled,
	)

	// 4. Start. The widget initializes the controller once mounted.
	return ui.Start(ctx, app.Controller)
}

func configPath() string {
	flags, _ := splitArgs(os.Args[1:])
	return configPathFrom(flags)
}

func configPathFrom(flags []string) string {
	for i, arg := range flags {
		if arg == "--config" && i+1 < len(flags) {
			return flags[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("FOLIO_CONFIG"); p != "" {
		return p
	}
	return "folio.yaml"
}

// splitArgs separates the global flags from the command line. Flags are
// only recognized before the command; "--" ends them. Everything from the
// command on is returned untouched, so a question may start with "-".
func splitArgs(args []string) (flags, command []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			return flags, args[i+1:]
		case a == "--config" && i+1 < len(args):
			flags = append(flags, a, args[i+1])
			i++
		case strings.HasPrefix(a, "-"):
			flags = append(flags, a)
		default:
			return flags, args[i:]
		}
	}
	return flags, nil
}

func hasFlag(args []string, names ...string) bool {
	for _, a := range args {
		for _, n := range names {
			if a == n {
				return true
			}
		}
	}
	return false
}
