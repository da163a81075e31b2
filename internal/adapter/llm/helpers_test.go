package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/domain"
)

func TestMapHTTPErrorStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusForbidden, domain.ErrAuthInvalid},
		{http.StatusBadRequest, domain.ErrInvalidInput},
		{http.StatusNotFound, domain.ErrProviderError},
		{http.StatusInternalServerError, domain.ErrProviderError},
		{http.StatusServiceUnavailable, domain.ErrProviderError},
		{418, domain.ErrProviderError},
	}
	for _, tt := range tests {
		err := mapHTTPError(tt.status, nil)
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, tt.status, se.StatusCode)
	}
}

func TestMapHTTPErrorParsesEnvelope(t *testing.T) {
	body := []byte(`{"error":{"code":503,"message":"The model is overloaded.","status":"UNAVAILABLE"}}`)
	err := mapHTTPError(http.StatusServiceUnavailable, body)

	assert.ErrorIs(t, err, domain.ErrProviderError)
	assert.Contains(t, err.Error(), "API error 503")
	assert.Contains(t, err.Error(), "UNAVAILABLE The model is overloaded.")
}

func TestMapHTTPErrorInvalidKeyIsAuth(t *testing.T) {
	body := []byte(`{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT","details":[{"@type":"type.googleapis.com/google.rpc.ErrorInfo","reason":"API_KEY_INVALID"}]}}`)
	err := mapHTTPError(http.StatusBadRequest, body)

	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.NotErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMapHTTPErrorIncludesRawBody(t *testing.T) {
	err := mapHTTPError(http.StatusBadGateway, []byte("upstream exploded"))
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestRetryableOnFallback(t *testing.T) {
	assert.True(t, retryableOnFallback(mapHTTPError(http.StatusTooManyRequests, nil)))
	assert.True(t, retryableOnFallback(mapHTTPError(http.StatusNotFound, nil)))
	assert.True(t, retryableOnFallback(mapHTTPError(http.StatusInternalServerError, nil)))
	assert.False(t, retryableOnFallback(mapHTTPError(http.StatusUnauthorized, nil)))
	assert.False(t, retryableOnFallback(mapHTTPError(http.StatusBadRequest, nil)))
	assert.False(t, retryableOnFallback(errors.New("dial tcp: no route to host")))
}

func TestDoStreamRequestSetsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "k", r.Header.Get("X-Goog-Api-Key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := doStreamRequest(context.Background(), server.Client(), server.URL, []byte(`{}`), map[string]string{"x-goog-api-key": "k"})
	require.NoError(t, err)
	resp.Body.Close()
}

func TestDoStreamRequestNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := doStreamRequest(context.Background(), server.Client(), server.URL, []byte(`{}`), nil)
	assert.ErrorIs(t, err, domain.ErrRateLimit)
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED quota")
}
