package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skoeber/agentgate/internal/metrics"
	"github.com/skoeber/agentgate/internal/tracing"
	"github.com/skoeber/agentgate/pkg/agentruntime"
	"github.com/skoeber/agentgate/pkg/identity"
)

// Orchestrator resolves a usable remote session identifier. Supplied
// identifiers are passed through untouched; validity is discovered lazily by
// the dispatcher when the remote service rejects them.
type Orchestrator struct {
	creds           *identity.Context
	agentEndpointID string
	remoteTimeout   time.Duration
	logger          zerolog.Logger
	metrics         *metrics.Metrics
}

// NewOrchestrator creates a session orchestrator.
func NewOrchestrator(creds *identity.Context, agentEndpointID string, remoteTimeout time.Duration, logger zerolog.Logger, m *metrics.Metrics) (*Orchestrator, error) {
	if creds == nil {
		return nil, fmt.Errorf("credential context is required")
	}
	if agentEndpointID == "" {
		return nil, fmt.Errorf("agent endpoint id is required")
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &Orchestrator{
		creds:           creds,
		agentEndpointID: agentEndpointID,
		remoteTimeout:   remoteTimeout,
		logger:          logger,
		metrics:         m,
	}, nil
}

// ResolveSession returns a valid session identifier. A non-empty existing
// identifier is returned unchanged with zero remote calls. Otherwise one
// remote creation is attempted, with exactly one credential re-acquisition
// and one further creation attempt when the first fails with an auth
// classification. Never more than two remote calls per invocation.
func (o *Orchestrator) ResolveSession(ctx context.Context, existing string) (string, error) {
	if existing != "" {
		return existing, nil
	}

	sid, err := o.createSession(ctx, "started by agentgate")
	if err == nil {
		return sid, nil
	}

	kind := agentruntime.Classify(err)
	o.metrics.FailureClassificationsTotal.WithLabelValues(kind.String()).Inc()
	logRemoteFailure(o.logger, ctx, "session creation failed", err, kind)

	if kind != agentruntime.KindAuthExpired {
		return "", wrapCreateFailure(err, kind)
	}

	o.metrics.CredentialRefreshesTotal.WithLabelValues(outcomeOf(o.creds.Acquire(ctx))).Inc()
	if _, cerr := o.creds.Current(); cerr != nil {
		return "", cerr
	}

	sid, err = o.createSession(ctx, "started by agentgate (retry)")
	if err != nil {
		kind = agentruntime.Classify(err)
		o.metrics.FailureClassificationsTotal.WithLabelValues(kind.String()).Inc()
		logRemoteFailure(o.logger, ctx, "session creation retry failed", err, kind)
		return "", wrapCreateFailure(err, kind)
	}
	return sid, nil
}

func (o *Orchestrator) createSession(ctx context.Context, description string) (string, error) {
	caller, err := o.creds.Current()
	if err != nil {
		return "", err
	}

	callCtx := ctx
	if o.remoteTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.remoteTimeout)
		defer cancel()
	}

	if tid := tracing.GetTraceID(ctx); tid != "" {
		description = fmt.Sprintf("%s (trace %s)", description, tid)
	}

	start := time.Now()
	sid, err := caller.CreateSession(callCtx, agentruntime.CreateSessionInput{
		AgentEndpointID: o.agentEndpointID,
		DisplayName:     fmt.Sprintf("agentgate session %s", uuid.NewString()[:8]),
		Description:     description,
	})
	o.metrics.RemoteCallDuration.WithLabelValues("create_session").Observe(time.Since(start).Seconds())
	o.metrics.RemoteCallsTotal.WithLabelValues("create_session", outcomeOf(err)).Inc()

	if err != nil {
		return "", err
	}

	o.metrics.SessionsCreatedTotal.Inc()
	o.logger.Info().
		Str("trace_id", tracing.GetTraceID(ctx)).
		Str("session_id", sid).
		Msg("Remote session created")
	return sid, nil
}

// wrapCreateFailure keeps remote failures inside SessionCreationError and
// everything else inside UnexpectedError.
func wrapCreateFailure(err error, kind agentruntime.Kind) error {
	if kind == agentruntime.KindUnexpected {
		return &UnexpectedError{Op: "session creation", Err: err}
	}
	return &SessionCreationError{Err: err}
}

func outcomeOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
