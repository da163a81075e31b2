package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"folio/internal/domain"
)

// maxErrorBody caps how much of a non-200 response body is read.
const maxErrorBody = 4096

// doStreamRequest performs a JSON POST request for SSE streaming.
// It returns the open *http.Response (caller must close Body).
// Returns a domain error for non-200 responses.
func doStreamRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}

	return httpResp, nil
}

// apiError is the error envelope returned by the Generative Language API,
// both as a non-200 body and occasionally inline in an SSE payload.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Details []struct {
		Reason string `json:"reason"`
	} `json:"details,omitempty"`
}

type apiErrorEnvelope struct {
	Error *apiError `json:"error"`
}

// reason returns the first machine-readable reason, if any.
func (e *apiError) reason() string {
	for _, d := range e.Details {
		if d.Reason != "" {
			return d.Reason
		}
	}
	return ""
}

// StatusError is a non-200 response from the API. It unwraps to the
// domain sentinels that classify it.
type StatusError struct {
	StatusCode int
	Detail     string
	kinds      []error
}

func (e *StatusError) Error() string {
	msg := e.kinds[0].Error() + ": API error " + strconv.Itoa(e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *StatusError) Unwrap() []error { return e.kinds }

// mapHTTPError maps an HTTP status code + response body to a domain error,
// so callers can branch on the sentinel instead of the status code.
func mapHTTPError(statusCode int, body []byte) error {
	se := &StatusError{StatusCode: statusCode}

	var env apiErrorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		se.Detail = strings.TrimSpace(env.Error.Status + " " + env.Error.Message)
		// An invalid key comes back as 400 INVALID_ARGUMENT.
		if env.Error.reason() == "API_KEY_INVALID" {
			se.kinds = []error{domain.ErrAuthInvalid}
			return se
		}
	} else {
		se.Detail = strings.TrimSpace(string(body))
	}

	switch {
	case statusCode == http.StatusTooManyRequests: // 429
		se.kinds = []error{domain.ErrRateLimit}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden: // 401, 403
		se.kinds = []error{domain.ErrAuthInvalid}
	case statusCode == http.StatusBadRequest:
		se.kinds = []error{domain.ErrProviderError, domain.ErrInvalidInput}
	default:
		se.kinds = []error{domain.ErrProviderError}
	}
	return se
}

// retryableOnFallback reports whether a stream initiation failure should be
// retried against the next configured model: rate limits, unknown models
// and server-side failures.
func retryableOnFallback(err error) bool {
	if domain.IsRetryableError(err) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusNotFound
	}
	return false
}
