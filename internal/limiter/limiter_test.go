package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPerIPLimit(t *testing.T) {
	rl := NewRateLimiter(1000, 1, 2, 0)

	for i := 0; i < 2; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed within burst", i)
		}
		rl.Done()
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("third request should exceed the per-IP burst")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other IPs must not share the bucket")
	}
}

func TestConcurrencyLimit(t *testing.T) {
	rl := NewRateLimiter(1000, 1000, 1000, 2)

	if !rl.Allow("a") || !rl.Allow("b") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("c") {
		t.Fatal("third concurrent request should be rejected")
	}
	rl.Done()
	if !rl.Allow("c") {
		t.Fatal("request should be allowed after a slot is released")
	}
}

func TestEvictIdleLimiters(t *testing.T) {
	rl := NewRateLimiter(1000, 10, 10, 0)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	rl.Done()
	now = now.Add(10 * time.Minute)
	rl.Allow("fresh")
	rl.Done()

	if removed := rl.Evict(5 * time.Minute); removed != 1 {
		t.Fatalf("expected 1 eviction, got %d", removed)
	}
	if _, ok := rl.perIP["fresh"]; !ok {
		t.Error("fresh limiter was evicted")
	}
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	rl := NewRateLimiter(1000, 1, 1, 0)
	rl.TrustForwardedFor = true
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/dry-run", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected [200 429], got %v", codes)
	}
}

func TestClientIP(t *testing.T) {
	rl := NewRateLimiter(1000, 10, 10, 0)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	if got := rl.clientIP(req); got != "192.0.2.10" {
		t.Errorf("expected host without port, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.1, 192.0.2.10")
	if got := rl.clientIP(req); got != "192.0.2.10" {
		t.Errorf("forwarded header must be ignored by default, got %q", got)
	}

	rl.TrustForwardedFor = true
	if got := rl.clientIP(req); got != "198.51.100.1" {
		t.Errorf("expected first forwarded address, got %q", got)
	}
}

func TestSpoofedForwardedForDoesNotBypassLimit(t *testing.T) {
	rl := NewRateLimiter(1000, 1, 1, 0)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 2)
	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/dry-run", nil)
		req.RemoteAddr = "192.0.2.99:4000"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected [200 429], got %v", codes)
	}
}
