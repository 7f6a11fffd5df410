package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestIsOriginAllowed(t *testing.T) {
	allowed := originSet([]string{"https://kiosk.school.example", " ", ""})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", false},
		{"http://localhost", true},
		{"http://localhost:5173", true},
		{"https://localhost:8443", true},
		{"http://localhost.evil.example", false},
		{"https://kiosk.school.example", true},
		{"https://other.example", false},
	}
	for _, tc := range tests {
		t.Run(tc.origin, func(t *testing.T) {
			if got := isOriginAllowed(tc.origin, allowed); got != tc.want {
				t.Errorf("isOriginAllowed(%q) = %v, want %v", tc.origin, got, tc.want)
			}
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	handler := CORS([]string{"*"})(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://anything.example")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anything.example" {
		t.Errorf("expected origin to be echoed, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/students", nil)
	req.Header.Set("Origin", "https://other.example")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if called {
		t.Error("preflight must not reach the handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin for unknown origin, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders()(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected frame denial header")
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	handler := limiter.Middleware(okHandler)

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/attendance/recognize", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := range 2 {
		if code := send("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := send("10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the burst is spent, got %d", code)
	}
	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("expected other clients to be unaffected, got %d", code)
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected handler status to pass through, got %d", rec.Code)
	}
}
