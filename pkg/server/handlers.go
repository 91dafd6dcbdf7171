package server

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/skoeber/agentgate/internal/tracing"
	"github.com/skoeber/agentgate/pkg/agentruntime"
	"github.com/skoeber/agentgate/pkg/identity"
)

const maxChatBodyBytes = 1 << 20

// handleChat serves POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.shuttingDown() {
		s.writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}

	s.inFlightReqs.Add(1)
	defer s.inFlightReqs.Done()

	s.metrics.RequestsInFlight.Inc()
	defer s.metrics.RequestsInFlight.Dec()
	start := time.Now()
	defer func() {
		s.metrics.ChatRequestDuration.Observe(time.Since(start).Seconds())
	}()

	traceID := r.Header.Get("X-Trace-Id")
	if traceID == "" {
		traceID = tracing.NewTraceID()
	}
	requestID, _ := gonanoid.New()

	ctx := tracing.WithTraceID(r.Context(), traceID)
	ctx = tracing.WithRequestID(ctx, requestID)
	logger := tracing.LoggerFromContext(ctx, s.logger)
	w.Header().Set("X-Trace-Id", traceID)

	if s.limiter != nil {
		client := clientAddr(r)
		if !s.limiter.CheckLimit(client) {
			s.metrics.RateLimitedRequestsTotal.Inc()
			logger.Warn().Str("client", client).Msg("Rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(s.limiter.GetRetryAfter(client)))
			s.countAndWriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err != nil {
		s.countAndWriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := validateChatRequest(body); err != nil {
		s.metrics.SchemaRejectionsTotal.Inc()
		s.countAndWriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.countAndWriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	sessionID := ""
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}

	logger.Info().
		Bool("session_supplied", sessionID != "").
		Msg("Chat request received")

	answer, sid, err := s.chat(ctx, req.UserMessage, sessionID)
	if err != nil {
		status := statusForError(err)
		logger.Error().Err(err).Int("status", status).Msg("Chat request failed")
		s.countAndWriteError(w, status, err.Error())
		return
	}

	s.metrics.ChatRequestsTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	s.writeJSON(w, http.StatusOK, ChatResponse{Answer: answer, SessionID: sid})
}

// handleIndex serves the static landing page on exactly "/".
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	page, err := os.ReadFile(filepath.Join(s.staticDir, "index.html"))
	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<h1>index.html not found in the static directory.</h1>"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

// statusForError maps the classified failure chain to an HTTP status. Remote
// service errors pass their status through; everything else collapses to the
// uninitialized-identity or internal buckets.
func statusForError(err error) int {
	if errors.Is(err, identity.ErrNotInitialized) {
		return http.StatusServiceUnavailable
	}

	var credErr *identity.CredentialError
	if errors.As(err, &credErr) {
		return http.StatusServiceUnavailable
	}

	var se *agentruntime.ServiceError
	if errors.As(err, &se) {
		if se.Status >= 400 && se.Status <= 599 {
			return se.Status
		}
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

func (s *Server) countAndWriteError(w http.ResponseWriter, status int, detail string) {
	s.metrics.ChatRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	s.writeError(w, status, detail)
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:  http.StatusText(status),
		Detail: detail,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// clientAddr extracts the client host for rate limiting.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
