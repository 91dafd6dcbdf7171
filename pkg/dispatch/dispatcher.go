package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/skoeber/agentgate/internal/metrics"
	"github.com/skoeber/agentgate/internal/tracing"
	"github.com/skoeber/agentgate/pkg/agentruntime"
	"github.com/skoeber/agentgate/pkg/identity"
)

// FallbackAnswer is returned when a successful chat response carries no
// textual content.
const FallbackAnswer = "no textual answer available"

// retryState tracks where a request is inside the bounded retry tree. The
// states make the three-attempt cap structural: every state either finishes
// or moves strictly deeper.
type retryState int

const (
	stateInitial retryState = iota
	stateAfterSessionRetry
	stateAfterAuthRetry
	stateAfterAuthThenSessionRetry
)

// Dispatcher sends user messages to the agent runtime and transparently
// recovers from expired sessions and expired credentials.
type Dispatcher struct {
	sessions        *Orchestrator
	creds           *identity.Context
	agentEndpointID string
	remoteTimeout   time.Duration
	logger          zerolog.Logger
	metrics         *metrics.Metrics
}

// Config holds dispatcher configuration.
type Config struct {
	Credentials     *identity.Context
	AgentEndpointID string
	// RemoteTimeout bounds each outbound call. Zero disables the bound; a
	// timed-out call classifies as unexpected and is never retried.
	RemoteTimeout time.Duration
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
}

// New creates a dispatcher and its session orchestrator.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("credential context is required")
	}
	if cfg.AgentEndpointID == "" {
		return nil, fmt.Errorf("agent endpoint id is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewMetrics()
	}

	sessions, err := NewOrchestrator(cfg.Credentials, cfg.AgentEndpointID, cfg.RemoteTimeout, cfg.Logger, cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		sessions:        sessions,
		creds:           cfg.Credentials,
		agentEndpointID: cfg.AgentEndpointID,
		remoteTimeout:   cfg.RemoteTimeout,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
	}, nil
}

// Sessions exposes the orchestrator, mainly for wiring and tests.
func (d *Dispatcher) Sessions() *Orchestrator { return d.sessions }

// Dispatch delivers one user message to a valid remote session and returns
// the answer text together with the session identifier the successful call
// actually used. At most three remote chat attempts are made, per the retry
// tree documented on the package.
func (d *Dispatcher) Dispatch(ctx context.Context, message, sessionID string) (string, string, error) {
	if _, err := d.creds.Current(); err != nil {
		return "", "", err
	}

	sid, err := d.sessions.ResolveSession(ctx, sessionID)
	if err != nil {
		return "", "", err
	}

	state := stateInitial
	for {
		res, err := d.chat(ctx, sid, message)
		if err == nil {
			return d.answer(res), sid, nil
		}

		kind := agentruntime.Classify(err)
		d.metrics.FailureClassificationsTotal.WithLabelValues(kind.String()).Inc()
		logRemoteFailure(d.logger, ctx, "chat attempt failed", err, kind)

		switch state {
		case stateInitial:
			switch kind {
			case agentruntime.KindSessionNotFound:
				// Session is stale remotely. Mint a fresh one and retry once.
				sid, err = d.sessions.ResolveSession(ctx, "")
				if err != nil {
					return "", "", err
				}
				d.metrics.RetriesTotal.WithLabelValues("session_retry").Inc()
				state = stateAfterSessionRetry

			case agentruntime.KindAuthExpired:
				// Identity rejected. Refresh once and retry with the same session.
				d.metrics.CredentialRefreshesTotal.WithLabelValues(outcomeOf(d.creds.Acquire(ctx))).Inc()
				if _, cerr := d.creds.Current(); cerr != nil {
					return "", "", cerr
				}
				d.metrics.RetriesTotal.WithLabelValues("auth_retry").Inc()
				state = stateAfterAuthRetry

			case agentruntime.KindOtherService:
				return "", "", err

			default:
				return "", "", wrapUnexpected(err)
			}

		case stateAfterSessionRetry:
			return "", "", finalFailure("chat failed after session recreation", err, kind)

		case stateAfterAuthRetry:
			if kind == agentruntime.KindSessionNotFound {
				// The session expired behind the credential refresh. One
				// last attempt with a fresh session; its outcome is final.
				sid, err = d.sessions.ResolveSession(ctx, "")
				if err != nil {
					return "", "", err
				}
				d.metrics.RetriesTotal.WithLabelValues("auth_session_retry").Inc()
				state = stateAfterAuthThenSessionRetry
				continue
			}
			return "", "", finalFailure("chat failed after credential refresh", err, kind)

		case stateAfterAuthThenSessionRetry:
			return "", "", finalFailure("chat failed after credential refresh and session recreation", err, kind)
		}
	}
}

func (d *Dispatcher) chat(ctx context.Context, sid, message string) (agentruntime.ChatResult, error) {
	caller, err := d.creds.Current()
	if err != nil {
		return agentruntime.ChatResult{}, err
	}

	callCtx := ctx
	if d.remoteTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.remoteTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := caller.Chat(callCtx, agentruntime.ChatInput{
		AgentEndpointID: d.agentEndpointID,
		SessionID:       sid,
		UserMessage:     message,
	})
	d.metrics.RemoteCallDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())
	d.metrics.RemoteCallsTotal.WithLabelValues("chat", outcomeOf(err)).Inc()
	return res, err
}

func (d *Dispatcher) answer(res agentruntime.ChatResult) string {
	if res.Text == "" {
		d.metrics.FallbackAnswersTotal.Inc()
		return FallbackAnswer
	}
	return res.Text
}

// finalFailure surfaces a retry-exhausted error with its remote detail
// preserved; unexpected failures get the generic wrapper instead.
func finalFailure(msg string, err error, kind agentruntime.Kind) error {
	if kind == agentruntime.KindUnexpected {
		return wrapUnexpected(err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func wrapUnexpected(err error) error {
	var ue *UnexpectedError
	if errors.As(err, &ue) {
		return err
	}
	return &UnexpectedError{Op: "chat", Err: err}
}

func logRemoteFailure(logger zerolog.Logger, ctx context.Context, msg string, err error, kind agentruntime.Kind) {
	evt := logger.Error().
		Str("trace_id", tracing.GetTraceID(ctx)).
		Str("kind", kind.String())

	var se *agentruntime.ServiceError
	if errors.As(err, &se) {
		evt = evt.
			Int("status", se.Status).
			Str("code", se.Code).
			Str("opc_request_id", se.RequestID)
	}
	evt.Err(err).Msg(msg)
}
