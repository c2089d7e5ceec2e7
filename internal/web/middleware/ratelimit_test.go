package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_AllowBurstThenBlock(t *testing.T) {
	rl := NewRateLimiter(3)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d blocked, want allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("fourth request allowed, want blocked")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other IP should have its own bucket")
	}

	// One token refills every 20s at 3/min.
	fixed = fixed.Add(21 * time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("token should have refilled")
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(2 * time.Minute)
	rl.Allow("10.0.0.2")
	now = now.Add(2 * time.Minute)
	rl.Sweep()

	if rl.Len() != 1 {
		t.Errorf("Len = %d, want 1 after sweep", rl.Len())
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewRateLimiter(1)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}
