package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"folio/internal/domain"
	"folio/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

type chunkStream = <-chan domain.ResponseChunk

// CircuitBreakerClient wraps a SessionClient so every session it creates
// shares one breaker. Once stream initiation fails repeatedly the circuit
// opens and StreamTurn fails fast with ErrCircuitOpen instead of calling the
// API again.
type CircuitBreakerClient struct {
	inner   domain.SessionClient
	breaker *gobreaker.CircuitBreaker[chunkStream]
}

// NewCircuitBreakerClient wraps inner with a circuit breaker. Zero-valued
// settings in cfg fall back to defaults.
func NewCircuitBreakerClient(inner domain.SessionClient, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	return &CircuitBreakerClient{
		inner:   inner,
		breaker: newStreamBreaker("assistant", cfg, logger),
	}
}

// CreateSession implements domain.SessionClient. Session creation is local
// and is not routed through the breaker.
func (c *CircuitBreakerClient) CreateSession(ctx context.Context, persona domain.PersonaConfig) (domain.SessionHandle, error) {
	s, err := c.inner.CreateSession(ctx, persona)
	if err != nil {
		return nil, err
	}
	return &CircuitBreakerSession{inner: s, breaker: c.breaker}, nil
}

// State returns the current circuit breaker state for monitoring.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerSession routes stream initiation through a breaker. Errors
// delivered later through the channel do not count against it.
type CircuitBreakerSession struct {
	inner   domain.SessionHandle
	breaker *gobreaker.CircuitBreaker[chunkStream]
}

// ID implements domain.SessionHandle.
func (s *CircuitBreakerSession) ID() string { return s.inner.ID() }

// StreamTurn implements domain.SessionHandle.
func (s *CircuitBreakerSession) StreamTurn(ctx context.Context, userText string) (<-chan domain.ResponseChunk, error) {
	ch, err := s.breaker.Execute(func() (chunkStream, error) {
		return s.inner.StreamTurn(ctx, userText)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.TransportError("CircuitBreaker.StreamTurn",
				fmt.Errorf("%w: %w", domain.ErrCircuitOpen, err))
		}
		return nil, err
	}
	return ch, nil
}

func newStreamBreaker(name string, cfg config.CircuitBreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[chunkStream] {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	return gobreaker.NewCircuitBreaker[chunkStream](gobreaker.Settings{
		Name:        "gemini:" + name,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// A local busy rejection or a bad key says nothing about API health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrStreamInFlight) ||
				errors.Is(err, domain.ErrAuthInvalid) ||
				errors.Is(err, context.Canceled)
		},
	})
}

// Compile-time interface checks.
var (
	_ domain.SessionClient = (*CircuitBreakerClient)(nil)
	_ domain.SessionHandle = (*CircuitBreakerSession)(nil)
)

// --- Connection Pooling ---

// Default connection pool settings. A chat widget talks to one host with
// at most one open stream, so the pool stays small.
const (
	defaultMaxIdleConns        = 4
	defaultMaxIdleConnsPerHost = 2
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 90 * time.Second
	defaultConnTimeout         = 30 * time.Second
	defaultRespTimeout         = 120 * time.Second
)

// NewPooledTransport creates an http.Transport with connection pooling.
// respTimeout bounds the wait for response headers only; the streamed body
// may take as long as the reply does.
func NewPooledTransport(connTimeout, respTimeout time.Duration, pool config.PoolConfig) *http.Transport {
	if connTimeout <= 0 {
		connTimeout = defaultConnTimeout
	}
	if respTimeout <= 0 {
		respTimeout = defaultRespTimeout
	}

	maxIdle := pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	maxIdlePerHost := pool.MaxIdleConnsPerHost
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = defaultMaxIdleConnsPerHost
	}
	maxConnsPerHost := pool.MaxConnsPerHost
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = defaultMaxConnsPerHost
	}
	idleTimeout := pool.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleConnTimeout
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: respTimeout,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       idleTimeout,
		ForceAttemptHTTP2:     true,
	}
}

// NewHTTPClient creates an *http.Client with the pooled transport. There is
// no overall client timeout, which would cut long streamed replies short.
func NewHTTPClient(cfg config.AssistantConfig) *http.Client {
	return &http.Client{
		Transport: NewPooledTransport(cfg.ConnTimeout, cfg.RespTimeout, cfg.Pool),
	}
}
