package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestAllowWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 3, Now: clock.Now})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatalf("fourth request in the window should be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatalf("other clients have their own window")
	}

	// Steady traffic does not extend the window.
	clock.t = clock.t.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatalf("new window should allow again")
	}
	if rl.ActiveClients() != 2 {
		t.Fatalf("ActiveClients = %d", rl.ActiveClients())
	}

	clock.t = clock.t.Add(11 * time.Minute)
	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 0 {
		t.Fatalf("stale clients should be removed, got %d", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyLimitsListedMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()
	rl.Stop() // idempotent

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	codes := []int{}
	for _, method := range []string{http.MethodPost, http.MethodPost, http.MethodGet} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests && rr.Header().Get("Retry-After") != "60" {
			t.Fatalf("missing Retry-After")
		}
	}
	want := []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusNoContent}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}
