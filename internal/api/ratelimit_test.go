package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMintLimiterAllowsBurst(t *testing.T) {
	limiter := newMintLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !limiter.allow("inst-1") {
			t.Fatalf("request %d within burst denied", i+1)
		}
	}
	if limiter.allow("inst-1") {
		t.Error("request beyond burst allowed")
	}
}

func TestMintLimiterPerKeyIsolation(t *testing.T) {
	limiter := newMintLimiter(1, 1)

	if !limiter.allow("inst-a") {
		t.Fatal("first request for inst-a denied")
	}
	if limiter.allow("inst-a") {
		t.Error("inst-a exceeded its bucket")
	}
	if !limiter.allow("inst-b") {
		t.Error("inst-b throttled by inst-a's bucket")
	}
}

func TestMintLimiterMiddleware429(t *testing.T) {
	limiter := newMintLimiter(1, 1)
	handler := limiter.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ctx := context.WithValue(context.Background(), instructorIDContextKey, "inst-1")

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest("POST", "/api/analytics/posthog/embed", nil).WithContext(ctx))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest("POST", "/api/analytics/posthog/embed", nil).WithContext(ctx))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", second.Code)
	}
}
