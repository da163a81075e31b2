package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"folio/internal/adapter/llm"
	"folio/internal/adapter/tui/uxerror"
	"folio/internal/domain"
	"folio/internal/infra/config"
	"folio/internal/infra/logger"
	"folio/internal/infra/tracer"
	chatuc "folio/internal/usecase/chat"
)

// Exit codes of the ask command.
const (
	exitOK        = 0
	exitErrorTurn = 1
	exitUsage     = 2
)

// runAsk sends one question, as typed, through the chat controller and
// streams the reply to stdout.
func runAsk(question string) (int, error) {
	if strings.TrimSpace(question) == "" {
		return exitUsage, errors.New(`usage: folio ask "<question>"`)
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		return exitErrorTurn, fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return exitErrorTurn, fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return exitErrorTurn, fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	return ask(ctx, cfg, log, question, os.Stdout, os.Stderr)
}

func ask(ctx context.Context, cfg *config.Config, log *slog.Logger, question string, stdout, stderr io.Writer) (int, error) {
	printer := newStreamPrinter(stdout)

	app, err := buildApp(cfg, log, printer.Update)
	if err != nil {
		return exitErrorTurn, err
	}

	if err := app.Controller.Initialize(ctx); err != nil {
		fe := uxerror.Humanize(err)
		fmt.Fprintln(stderr, fe.Render())
		return exitErrorTurn, nil
	}

	printer.Follow(len(app.Controller.Snapshot().Turns))
	if !app.Controller.Submit(ctx, question) {
		return exitErrorTurn, errors.New("question rejected")
	}
	printer.Finish()

	turns := app.Controller.Snapshot().Turns
	if last := turns[len(turns)-1]; last.IsError {
		if cb, ok := app.Client.(*llm.CircuitBreakerClient); ok {
			log.Warn("ask ended with an error turn", "circuit_breaker", cb.State().String())
		}
		fmt.Fprintln(stderr, last.Text)
		return exitErrorTurn, nil
	}
	return exitOK, nil
}

// streamPrinter writes the growing model turn as deltas. The controller
// overwrites the open turn with the accumulated text, so only the suffix
// past what was already printed is written.
type streamPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	from    int // first transcript index to print
	turnID  string
	printed int
}

func newStreamPrinter(w io.Writer) *streamPrinter {
	return &streamPrinter{w: w, from: -1}
}

// Follow starts printing model turns at transcript index from.
func (p *streamPrinter) Follow(from int) {
	p.mu.Lock()
	p.from = from
	p.mu.Unlock()
}

// Update is installed as the controller's change callback.
func (p *streamPrinter) Update(s chatuc.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.from < 0 {
		return
	}
	for i := p.from; i < len(s.Turns); i++ {
		t := s.Turns[i]
		if t.Speaker != domain.SpeakerModel || t.IsError {
			continue
		}
		if t.ID != p.turnID {
			p.turnID = t.ID
			p.printed = 0
		}
		if len(t.Text) <= p.printed {
			continue
		}
		io.WriteString(p.w, t.Text[p.printed:])
		p.printed = len(t.Text)
	}
}

// Finish terminates the printed reply with a newline.
func (p *streamPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed > 0 {
		io.WriteString(p.w, "\n")
	}
}
