package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/funding", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:5000"); code != http.StatusOK {
			t.Fatalf("request %d within burst: got %d", i, code)
		}
	}
	if code := send("10.0.0.1:5001"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once burst is spent, got %d", code)
	}
	if code := send("10.0.0.2:5000"); code != http.StatusOK {
		t.Fatalf("other clients must not be limited, got %d", code)
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.allow("a")
	now = now.Add(10 * time.Minute)
	rl.allow("b")

	if dropped := rl.Evict(5 * time.Minute); dropped != 1 {
		t.Fatalf("expected 1 idle limiter dropped, got %d", dropped)
	}
	if _, ok := rl.limiters["b"]; !ok {
		t.Fatalf("recent client should be kept")
	}
}
