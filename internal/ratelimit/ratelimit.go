// Package ratelimit provides a keyed token-bucket rate limiter.
// It supports both non-blocking (Allow) and blocking (Wait) operations.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Keyed manages per-key rate limiting.
// Each unique key gets its own independent token bucket.
type Keyed struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new keyed rate limiter.
// rps: requests per second allowed.
// burst: maximum burst size (tokens available immediately).
func New(rps float64, burst int) *Keyed {
	k := &Keyed{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		done:     make(chan struct{}),
	}

	go k.run()

	return k
}

// Allow checks if a request for the given key should be allowed.
// Returns immediately without blocking. Use for inbound request protection,
// e.g. throttling highlight creation per session.
func (k *Keyed) Allow(key string) bool {
	return k.getLimiter(key).Allow()
}

// Wait blocks until a request for the given key is allowed or the context is
// canceled. Use for outbound requests to the content and narration services.
func (k *Keyed) Wait(ctx context.Context, key string) error {
	return k.getLimiter(key).Wait(ctx)
}

// getLimiter returns the limiter for a key, creating one if needed.
func (k *Keyed) getLimiter(key string) *rate.Limiter {
	// Fast path: read lock
	k.mu.RLock()
	limiter, exists := k.limiters[key]
	k.mu.RUnlock()

	if exists {
		return limiter
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = k.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(k.limit, k.burst)
	k.limiters[key] = limiter
	return limiter
}

// Forget drops the limiter for a key. Called when a playback session is
// removed so abandoned sessions do not accumulate buckets.
func (k *Keyed) Forget(key string) {
	k.mu.Lock()
	delete(k.limiters, key)
	k.mu.Unlock()
}

// Stop shuts down the limiter.
func (k *Keyed) Stop() {
	k.stopOnce.Do(func() {
		close(k.done)
	})
}

// run waits for the stop signal. rate.Limiter does not track last access
// time, so periodic eviction is not possible here; Forget handles the
// bounded session-key case instead.
func (k *Keyed) run() {
	<-k.done
}
