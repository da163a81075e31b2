package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. InitError and TransportError are the two failure
// classes the chat core distinguishes; the rest refine them.
var (
	ErrInit      = fmt.Errorf("session initialization failed")
	ErrTransport = fmt.Errorf("stream transport failed")

	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
)

// Sentinel errors for the domain layer.
var (
	ErrMissingCredential  = fmt.Errorf("api credential not configured")
	ErrAuthInvalid        = fmt.Errorf("authentication failed")
	ErrRateLimit          = fmt.Errorf("rate limit exceeded")
	ErrStreamInFlight     = fmt.Errorf("a stream is already open on this session")
	ErrMalformedChunk     = fmt.Errorf("malformed stream chunk")
	ErrTurnClosed         = fmt.Errorf("turn is closed")
	ErrAlreadyInitialized = fmt.Errorf("controller already initialized")
	ErrSessionUnavailable = fmt.Errorf("assistant session unavailable")
	ErrCircuitOpen        = fmt.Errorf("circuit open")
	ErrConfigLoad         = fmt.Errorf("failed to load configuration")
	ErrDecryption         = fmt.Errorf("decryption failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Gemini.CreateSession")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// InitError marks err as a session initialization failure while keeping
// the original chain intact for errors.Is.
func InitError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInit) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrInit, err)
}

// TransportError marks err as a streaming failure.
func TransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransport) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrCircuitOpen)
}

// ErrorCode is a machine-parseable error category for log fields.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeInit               ErrorCode = "INIT"
	CodeTransport          ErrorCode = "TRANSPORT"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeProviderError      ErrorCode = "PROVIDER_ERROR"
	CodeMissingCredential  ErrorCode = "MISSING_CREDENTIAL"
	CodeAuthInvalid        ErrorCode = "AUTH_INVALID"
	CodeRateLimit          ErrorCode = "RATE_LIMIT"
	CodeStreamInFlight     ErrorCode = "STREAM_IN_FLIGHT"
	CodeMalformedChunk     ErrorCode = "MALFORMED_CHUNK"
	CodeTurnClosed         ErrorCode = "TURN_CLOSED"
	CodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"
	CodeSessionUnavailable ErrorCode = "SESSION_UNAVAILABLE"
	CodeCircuitOpen        ErrorCode = "CIRCUIT_OPEN"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
	CodeDecryption         ErrorCode = "DECRYPTION"
)

// specificCodes are checked before the category sentinels so that a wrapped
// chain like ErrTransport+ErrRateLimit reports the more precise code.
var specificCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrMissingCredential, CodeMissingCredential},
	{ErrAuthInvalid, CodeAuthInvalid},
	{ErrRateLimit, CodeRateLimit},
	{ErrStreamInFlight, CodeStreamInFlight},
	{ErrMalformedChunk, CodeMalformedChunk},
	{ErrTurnClosed, CodeTurnClosed},
	{ErrAlreadyInitialized, CodeAlreadyInitialized},
	{ErrSessionUnavailable, CodeSessionUnavailable},
	{ErrCircuitOpen, CodeCircuitOpen},
	{ErrConfigLoad, CodeConfigLoad},
	{ErrDecryption, CodeDecryption},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrProviderError, CodeProviderError},
}

var categoryCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrInit, CodeInit},
	{ErrTransport, CodeTransport},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// The most specific sentinel in the chain wins; CodeUnknown if none match.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for _, c := range specificCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	for _, c := range categoryCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
