package mcp

import (
	"sync"
	"time"
)

// RateLimiter caps inbound request throughput with a token bucket. The rate
// comes from server.rate_limit in configuration (requests per minute); the
// bucket holds up to two minutes' worth of tokens so short bursts are
// absorbed without letting the sustained rate drift above the configured one.
type RateLimiter struct {
	mu         sync.Mutex
	interval   time.Duration // time to earn one token
	tokens     float64
	maxTokens  float64
	lastRefill time.Time
}

// NewRateLimiter creates a limiter for the given requests-per-minute rate.
func NewRateLimiter(ratePerMinute int) *RateLimiter {
	return &RateLimiter{
		interval:   time.Minute / time.Duration(ratePerMinute),
		tokens:     float64(ratePerMinute),
		maxTokens:  float64(ratePerMinute * 2),
		lastRefill: time.Now(),
	}
}

// Allow reports whether a request may proceed, consuming one token if so.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.tokens += float64(now.Sub(r.lastRefill)) / float64(r.interval)
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	r.lastRefill = now

	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}
