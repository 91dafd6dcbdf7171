package server

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(5)
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.CheckLimit("10.0.0.1"), "request %d should be allowed", i)
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.CheckLimit("10.0.0.1"))
	}
	assert.False(t, rl.CheckLimit("10.0.0.1"))
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()

	assert.True(t, rl.CheckLimit("10.0.0.1"))
	assert.False(t, rl.CheckLimit("10.0.0.1"))

	// A different client has its own window.
	assert.True(t, rl.CheckLimit("10.0.0.2"))
}

func TestGetRetryAfter(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()

	assert.Equal(t, 0, rl.GetRetryAfter("10.0.0.1"))

	rl.CheckLimit("10.0.0.1")
	retryAfter := rl.GetRetryAfter("10.0.0.1")
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 60)
}

func TestCleanupRemovesIdleClients(t *testing.T) {
	rl := NewRateLimiter(10)
	defer rl.Stop()

	for i := 0; i < 20; i++ {
		rl.CheckLimit(fmt.Sprintf("10.0.0.%d", i))
	}

	rl.mu.Lock()
	for _, state := range rl.limits {
		// Age out every recorded request.
		for j := range state.requests {
			state.requests[j] -= 120000
		}
	}
	rl.mu.Unlock()

	rl.cleanup()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.Empty(t, rl.limits)
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.Stop()
	rl.Stop()
}
