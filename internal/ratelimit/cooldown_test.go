package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownFirstRequestAlwaysAllowed(t *testing.T) {
	c := NewCooldown(3 * time.Second)
	now := time.Now().UTC()

	assert.True(t, c.Allow("alice", now))
	assert.True(t, c.Allow("bob", now), "a fresh key has its own budget")
}

func TestCooldownWindow(t *testing.T) {
	base := time.Now().UTC()

	tests := []struct {
		name    string
		gap     time.Duration
		allowed bool
	}{
		{"inside window", time.Second, false},
		{"just inside window", 3*time.Second - time.Millisecond, false},
		{"exactly at window", 3 * time.Second, true},
		{"past window", 4 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCooldown(3 * time.Second)
			assert.True(t, c.Allow("alice", base))
			assert.Equal(t, tt.allowed, c.Allow("alice", base.Add(tt.gap)))
		})
	}
}

func TestCooldownRecordsOnlyOnSuccess(t *testing.T) {
	c := NewCooldown(3 * time.Second)
	base := time.Now().UTC()

	assert.True(t, c.Allow("alice", base))

	// Denied attempts must not extend the window.
	assert.False(t, c.Allow("alice", base.Add(time.Second)))
	assert.False(t, c.Allow("alice", base.Add(2*time.Second)))
	assert.True(t, c.Allow("alice", base.Add(3*time.Second)))
}

func TestCooldownIdleDoesNotAccrueBurst(t *testing.T) {
	c := NewCooldown(3 * time.Second)
	base := time.Now().UTC()

	assert.True(t, c.Allow("alice", base))

	// A long idle stretch earns exactly one fresh allowance, never a
	// backlog of them.
	later := base.Add(30 * time.Second)
	assert.True(t, c.Allow("alice", later))
	assert.False(t, c.Allow("alice", later))
	assert.False(t, c.Allow("alice", later.Add(time.Second)))
}

func TestCooldownActionClassesArePartitioned(t *testing.T) {
	messages := NewCooldown(3 * time.Second)
	uploads := NewCooldown(5 * time.Second)
	now := time.Now().UTC()

	// Spending the message budget leaves the upload budget untouched.
	assert.True(t, messages.Allow("alice", now))
	assert.True(t, uploads.Allow("alice", now))
	assert.False(t, messages.Allow("alice", now.Add(time.Second)))
	assert.False(t, uploads.Allow("alice", now.Add(4*time.Second)))
	assert.True(t, uploads.Allow("alice", now.Add(5*time.Second)))
}

func TestCooldownForget(t *testing.T) {
	c := NewCooldown(time.Hour)
	now := time.Now().UTC()

	assert.True(t, c.Allow("alice", now))
	assert.False(t, c.Allow("alice", now.Add(time.Second)))

	c.Forget("alice")
	assert.True(t, c.Allow("alice", now.Add(2*time.Second)))
}

func TestIPRateLimiterMiddleware(t *testing.T) {
	rl := NewIPRateLimiter(2, time.Minute, CleanupOpts{TTL: time.Minute, Interval: time.Minute})
	defer rl.Cancel()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/upload", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different origin has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	req.RemoteAddr = "192.0.2.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
