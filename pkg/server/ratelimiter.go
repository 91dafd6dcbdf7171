package server

import (
	"sync"
	"time"
)

// clientWindow tracks request timestamps for one client inside the sliding
// window.
type clientWindow struct {
	requests []int64
}

// RateLimiter implements per-client rate limiting with a one-minute sliding
// window.
type RateLimiter struct {
	limits            map[string]*clientWindow
	maxRequestsPerMin int
	mu                sync.RWMutex
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxRequestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		limits:            make(map[string]*clientWindow),
		maxRequestsPerMin: maxRequestsPerMinute,
		cleanupInterval:   5 * time.Minute,
		stopCleanup:       make(chan struct{}),
	}

	go rl.startCleanup()

	return rl
}

// CheckLimit checks if a request from the given client is allowed
func (rl *RateLimiter) CheckLimit(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()

	state, exists := rl.limits[client]
	if !exists {
		state = &clientWindow{}
		rl.limits[client] = state
	}

	valid := state.requests[:0]
	for _, reqTime := range state.requests {
		if now-reqTime < 60000 {
			valid = append(valid, reqTime)
		}
	}
	state.requests = valid

	if len(state.requests) >= rl.maxRequestsPerMin {
		return false
	}

	state.requests = append(state.requests, now)
	return true
}

// GetRetryAfter returns the number of seconds until the window frees up
func (rl *RateLimiter) GetRetryAfter(client string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	state, exists := rl.limits[client]
	if !exists || len(state.requests) == 0 {
		return 0
	}

	now := time.Now().UnixMilli()
	oldest := state.requests[0]

	retryAfterMs := 60000 - (now - oldest)
	if retryAfterMs < 0 {
		return 0
	}

	return int((retryAfterMs + 999) / 1000)
}

func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()

	for client, state := range rl.limits {
		valid := state.requests[:0]
		for _, reqTime := range state.requests {
			if now-reqTime < 60000 {
				valid = append(valid, reqTime)
			}
		}

		if len(valid) == 0 {
			delete(rl.limits, client)
		} else {
			state.requests = valid
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
