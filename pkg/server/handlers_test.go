package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skoeber/agentgate/internal/metrics"
	"github.com/skoeber/agentgate/pkg/agentruntime"
	"github.com/skoeber/agentgate/pkg/identity"
)

func newTestServer(t *testing.T, chat ChatFunc, opts ...func(*Config)) *Server {
	t.Helper()
	cfg := Config{
		Host:      "127.0.0.1",
		Port:      8000,
		StaticDir: t.TempDir(),
		Chat:      chat,
		Metrics:   metrics.NewMetrics(),
		Logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func okChat(answer, sid string) ChatFunc {
	return func(ctx context.Context, msg, sessionID string) (string, string, error) {
		return answer, sid, nil
	}
}

func failChat(err error) ChatFunc {
	return func(ctx context.Context, msg, sessionID string) (string, string, error) {
		return "", "", err
	}
}

func postChat(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleChatSuccess(t *testing.T) {
	var gotMessage, gotSession string
	chat := func(ctx context.Context, msg, sessionID string) (string, string, error) {
		gotMessage, gotSession = msg, sessionID
		return "the answer", "abc", nil
	}
	s := newTestServer(t, chat)

	rec := postChat(t, s, `{"user_message": "hello", "session_id": "abc"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "the answer", resp.Answer)
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, "hello", gotMessage)
	assert.Equal(t, "abc", gotSession)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestHandleChatNullSession(t *testing.T) {
	var gotSession string
	chat := func(ctx context.Context, msg, sessionID string) (string, string, error) {
		gotSession = sessionID
		return "ok", "minted", nil
	}
	s := newTestServer(t, chat)

	rec := postChat(t, s, `{"user_message": "hello", "session_id": null}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, gotSession)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "minted", resp.SessionID)
}

func TestHandleChatSchemaRejections(t *testing.T) {
	s := newTestServer(t, okChat("x", "y"))

	tests := []struct {
		name string
		body string
	}{
		{"missing user_message", `{"session_id": "abc"}`},
		{"empty user_message", `{"user_message": ""}`},
		{"wrong type", `{"user_message": 42}`},
		{"extra property", `{"user_message": "hi", "mode": "stream"}`},
		{"not json", `{nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postChat(t, s, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleChatMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, okChat("x", "y"))

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleChatErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{
			name:   "uninitialized identity",
			err:    identity.ErrNotInitialized,
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "credential failure",
			err:    &identity.CredentialError{Err: errors.New("identity source unreachable")},
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "remote status pass-through",
			err:    &agentruntime.ServiceError{Status: 404, Code: "NotFound", Message: "genaiagentsession gone"},
			status: http.StatusNotFound,
		},
		{
			name:   "wrapped remote status pass-through",
			err:    fmt.Errorf("chat failed after credential refresh: %w", &agentruntime.ServiceError{Status: 429, Code: "TooManyRequests", Message: "slow down"}),
			status: http.StatusTooManyRequests,
		},
		{
			name:   "remote error without usable status",
			err:    &agentruntime.ServiceError{Status: 0, Code: "Mystery", Message: "?"},
			status: http.StatusBadGateway,
		},
		{
			name:   "unexpected failure",
			err:    errors.New("dial tcp: connection refused"),
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, failChat(tt.err))
			rec := postChat(t, s, `{"user_message": "hello"}`)

			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Detail)
		})
	}
}

func TestHandleChatRateLimit(t *testing.T) {
	s := newTestServer(t, okChat("x", "y"), func(cfg *Config) {
		cfg.RateLimitPerMinute = 2
	})
	defer s.limiter.Stop()

	for i := 0; i < 2; i++ {
		rec := postChat(t, s, `{"user_message": "hello"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := postChat(t, s, `{"user_message": "hello"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHandleIndex(t *testing.T) {
	t.Run("serves landing page", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>agentgate</h1>"), 0644))

		s := newTestServer(t, okChat("x", "y"), func(cfg *Config) {
			cfg.StaticDir = dir
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "agentgate")
	})

	t.Run("missing page yields 404", func(t *testing.T) {
		s := newTestServer(t, okChat("x", "y"))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown path yields 404", func(t *testing.T) {
		s := newTestServer(t, okChat("x", "y"))

		req := httptest.NewRequest(http.MethodGet, "/nope", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, okChat("x", "y"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, okChat("x", "y"))

	postChat(t, s, `{"user_message": "hello"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat_requests_total")
}

func TestNewServerValidation(t *testing.T) {
	t.Run("missing chat func", func(t *testing.T) {
		_, err := NewServer(Config{Port: 8000})
		assert.Error(t, err)
	})

	t.Run("invalid port", func(t *testing.T) {
		_, err := NewServer(Config{Port: 0, Chat: okChat("x", "y")})
		assert.Error(t, err)
	})
}

func TestShuttingDownRejectsRequests(t *testing.T) {
	s := newTestServer(t, okChat("x", "y"))

	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	rec := postChat(t, s, `{"user_message": "hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
