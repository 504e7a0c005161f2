package services

import (
	"fmt"
	"sync"
	"time"
)

// NotifyRateLimiter caps how many notifications a single phone number can
// receive within a sliding window, so a misbehaving scheduler cannot flood
// the operator.
type NotifyRateLimiter struct {
	mu          sync.RWMutex
	requests    map[string][]time.Time
	maxRequests int
	window      time.Duration
}

// NewNotifyRateLimiter creates a new notification rate limiter.
// maxRequests: maximum number of messages per window
// window: time window for rate limiting (e.g., 1 hour)
func NewNotifyRateLimiter(maxRequests int, window time.Duration) *NotifyRateLimiter {
	return &NotifyRateLimiter{
		requests:    make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow checks if a message is allowed for the given phone number.
func (rl *NotifyRateLimiter) Allow(phoneNumber string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.cleanupOldRequests(phoneNumber, now)

	if len(rl.requests[phoneNumber]) >= rl.maxRequests {
		return fmt.Errorf("rate limit exceeded: maximum %d messages per %v", rl.maxRequests, rl.window)
	}

	rl.requests[phoneNumber] = append(rl.requests[phoneNumber], now)
	return nil
}

// cleanupOldRequests removes requests outside the time window
func (rl *NotifyRateLimiter) cleanupOldRequests(phoneNumber string, now time.Time) {
	requests, exists := rl.requests[phoneNumber]
	if !exists {
		return
	}

	cutoff := now.Add(-rl.window)
	valid := make([]time.Time, 0, len(requests))
	for _, req := range requests {
		if req.After(cutoff) {
			valid = append(valid, req)
		}
	}

	if len(valid) == 0 {
		delete(rl.requests, phoneNumber)
	} else {
		rl.requests[phoneNumber] = valid
	}
}

// Reset clears all rate limiting data
func (rl *NotifyRateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.requests = make(map[string][]time.Time)
}
