// Package ratelimit gates repeated actions. The Cooldown type is the
// domain gate (one success per window, keyed by identity or origin); the
// IP limiter in ip_limiter.go shields the raw HTTP surface.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cooldown allows at most one action per key per window, measured from
// the last accepted action. Each key gets a burst-1 limiter refilling at
// one token per window: a denied attempt consumes nothing, so the next
// success lands exactly one window after the last one.
type Cooldown struct {
	mu      sync.Mutex
	window  time.Duration
	buckets map[string]*rate.Limiter
}

// NewCooldown returns a gate with the given window. Partition action
// classes by giving each its own Cooldown so a message send never
// consumes an upload budget.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window:  window,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether an action for key is accepted at now. The first
// request for a fresh key is always allowed; denials do not push the
// window back.
func (c *Cooldown) Allow(key string, now time.Time) bool {
	c.mu.Lock()
	lim, ok := c.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(c.window), 1)
		c.buckets[key] = lim
	}
	c.mu.Unlock()

	return lim.AllowN(now, 1)
}

// Forget drops the key's limiter, used when its identity disconnects.
func (c *Cooldown) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buckets, key)
}
