package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     time.Time
}

// Limiter checks whether a request identified by key is within its limit.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter Limiter
	Key     func(*http.Request) string
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface. Limiter
// failures fail open so a degraded store never blocks traffic.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Key == nil || h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		res, err := h.Limiter.Allow(r.Context(), h.Key(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(time.Until(res.Reset).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
