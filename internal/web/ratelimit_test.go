package web

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRateLimiterBurst(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(0.001), 3)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.AllowWithRetry("10.0.0.1")
		assert.True(t, allowed, "request %d within burst", i)
	}
	allowed, retryAfter := limiter.AllowWithRetry("10.0.0.1")
	assert.False(t, allowed)
	assert.Positive(t, retryAfter)

	// Other clients have their own bucket.
	allowed, _ = limiter.AllowWithRetry("10.0.0.2")
	assert.True(t, allowed)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/health", nil)
	r.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}
