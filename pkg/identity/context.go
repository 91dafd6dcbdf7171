package identity

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/rs/zerolog"

	"github.com/skoeber/agentgate/pkg/agentruntime"
)

// ErrNotInitialized is returned by Current when no acquisition has ever
// succeeded. Callers surface it as service unavailability.
var ErrNotInitialized = errors.New("agent runtime client is not initialized")

// CredentialError wraps a failed identity acquisition.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential acquisition failed: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// BuildFunc turns freshly acquired signing material into an authenticated
// runtime caller. Injected so the retry logic can be tested without the SDK.
type BuildFunc func(provider common.ConfigurationProvider) (agentruntime.Caller, error)

type entry struct {
	caller     agentruntime.Caller
	acquiredAt time.Time
}

// Context holds the active signed identity handle. Concurrent readers take
// the current handle lock-free; Acquire replaces it wholesale. Redundant
// concurrent acquisitions are tolerated, the latest successful one wins.
type Context struct {
	source   Source
	build    BuildFunc
	debounce time.Duration
	current  atomic.Pointer[entry]
	logger   zerolog.Logger
}

// Options tunes a Context.
type Options struct {
	// Debounce skips a re-acquisition when another one completed within the
	// window. Zero disables the debounce. Purely an efficiency measure; a
	// stale read only costs one extra retry.
	Debounce time.Duration
	Logger   zerolog.Logger
}

// NewContext creates an uninitialized credential context. Call Acquire before
// first use; Current reports ErrNotInitialized until one succeeds.
func NewContext(source Source, build BuildFunc, opts Options) (*Context, error) {
	if source == nil {
		return nil, fmt.Errorf("identity source is required")
	}
	if build == nil {
		return nil, fmt.Errorf("build func is required")
	}
	return &Context{
		source:   source,
		build:    build,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}, nil
}

// Acquire establishes or re-establishes the signed identity. On failure the
// previous handle, if any, stays in place.
func (c *Context) Acquire(ctx context.Context) error {
	if prev := c.current.Load(); prev != nil && c.debounce > 0 {
		if age := time.Since(prev.acquiredAt); age < c.debounce {
			c.logger.Debug().
				Dur("age", age).
				Msg("Skipping credential re-acquisition inside debounce window")
			return nil
		}
	}

	provider, err := c.source.Provide(ctx)
	if err != nil {
		c.logger.Error().Err(err).Str("source", c.source.Name()).Msg("Identity acquisition failed")
		return &CredentialError{Err: err}
	}

	caller, err := c.build(provider)
	if err != nil {
		c.logger.Error().Err(err).Str("source", c.source.Name()).Msg("Runtime client construction failed")
		return &CredentialError{Err: err}
	}

	c.current.Store(&entry{caller: caller, acquiredAt: time.Now()})
	c.logger.Info().Str("source", c.source.Name()).Msg("Signed identity acquired")
	return nil
}

// Current returns the active runtime caller, or ErrNotInitialized when no
// acquisition has ever succeeded.
func (c *Context) Current() (agentruntime.Caller, error) {
	e := c.current.Load()
	if e == nil {
		return nil, ErrNotInitialized
	}
	return e.caller, nil
}

// AcquiredAt reports when the active handle was established. The zero time
// means the context is uninitialized.
func (c *Context) AcquiredAt() time.Time {
	e := c.current.Load()
	if e == nil {
		return time.Time{}
	}
	return e.acquiredAt
}
