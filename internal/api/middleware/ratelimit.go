package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/pkg/httputil"
)

// RateLimiter counts requests per client key within the current window
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int) (bool, int, error)
}

// RateLimitMiddleware provides per-client rate limiting backed by Redis
type RateLimitMiddleware struct {
	limiter RateLimiter
	limit   int
	enabled bool
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter RateLimiter, limit int, enabled bool) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		enabled: enabled,
	}
}

// Handler returns the middleware handler
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled || m.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		if r.URL.Path == "/health" || r.URL.Path == "/ready" {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r)

		allowed, count, err := m.limiter.CheckRateLimit(r.Context(), key, m.limit)
		if err != nil {
			// Redis being down should not take resolutions with it
			next.ServeHTTP(w, r)
			return
		}

		remaining := m.limit - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			w.Header().Set("Retry-After", "60")
			httputil.ErrorFromDomain(w, domain.ErrRateLimited(time.Minute))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller by forwarded IP, falling back to the
// connection address
func clientKey(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}
