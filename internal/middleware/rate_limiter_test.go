package middleware

import (
	"testing"
	"time"
)

func TestIPRateLimiterAllow(t *testing.T) {
	limiter := NewIPRateLimiter(2, time.Minute, 2, time.Hour)

	if !limiter.Allow("1.2.3.4") {
		t.Fatal("expected first request to pass")
	}
	if !limiter.Allow("1.2.3.4") {
		t.Fatal("expected burst capacity to cover the second request")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("expected third request to be limited")
	}

	// Other keys are tracked independently.
	if !limiter.Allow("5.6.7.8") {
		t.Fatal("expected a fresh key to pass")
	}
}

func TestIPRateLimiterExpiry(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Minute, 1, time.Minute)

	inner, ok := limiter.(*ipRateLimiter)
	if !ok {
		t.Fatalf("unexpected limiter type %T", limiter)
	}

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	inner.WithNowFunc(func() time.Time { return now })

	limiter.Allow("1.2.3.4")
	if len(inner.clients) != 1 {
		t.Fatalf("expected one tracked key, got %d", len(inner.clients))
	}

	// Advancing past the ttl garbage-collects the idle entry on the next call.
	now = now.Add(2 * time.Minute)
	limiter.Allow("5.6.7.8")
	if _, tracked := inner.clients["1.2.3.4"]; tracked {
		t.Fatal("expected idle key to be expired")
	}
}
