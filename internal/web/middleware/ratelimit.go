package middleware

import (
	"net"
	"net/http"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/kozaktomas/face-attendance/internal/logging"
)

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rate    rate.Limit
	burst   int
}

// NewRateLimiter allows perSecond sustained requests with the given burst per client.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		rate:    rate.Limit(perSecond),
		burst:   burst,
	}
}

// LimiterFor returns the bucket for ip, creating it on first use.
func (l *RateLimiter) LimiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.buckets[ip]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.buckets[ip] = limiter
	}
	return limiter
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already replaced it with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the client's budget with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.LimiterFor(ip).Allow() {
			logging.Warn(logging.Fields{"ip": ip, "path": r.URL.Path}, "too many requests")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = jsoniter.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
