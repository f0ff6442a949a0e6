package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		expected   string
	}{
		{name: "remote addr with port", remoteAddr: "10.0.0.1:1234", expected: "10.0.0.1"},
		{name: "remote addr without port", remoteAddr: "10.0.0.1", expected: "10.0.0.1"},
		{name: "single forwarded", remoteAddr: "10.0.0.1:1", xff: "203.0.113.7", expected: "203.0.113.7"},
		{name: "forwarded chain", remoteAddr: "10.0.0.1:1", xff: "203.0.113.7, 10.0.0.2", expected: "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr

			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}

			assert.Equal(t, tt.expected, extractIP(req))
		})
	}
}

func TestRateLimiterMap_Prune(t *testing.T) {
	rl := newRateLimiterMap(60)

	first := rl.getLimiter("a")
	assert.Same(t, first, rl.getLimiter("a"))

	rl.prune(time.Now().Add(rateLimitEntryTTL + time.Minute))
	assert.Empty(t, rl.limiters)
	assert.NotSame(t, first, rl.getLimiter("a"))
}
