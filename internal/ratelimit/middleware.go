package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/backend-tour/internal/common"
)

// CodeRateLimited is the error code returned with 429 responses.
const CodeRateLimited = "RATE_LIMITED"

// Config names the limited resource: Key buckets requests, Max of them
// are admitted per sliding Window.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler applies a Config with a redis-backed Limiter. When redis fails
// the request is let through and OnError is told.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// Middleware sets the X-RateLimit headers and answers 429 with Retry-After
// once the bucket is full.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Config.Max, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		wait := int(math.Ceil(time.Until(resetAt).Seconds()))
		wait = max(wait, 0)
		headers.Set("Retry-After", strconv.Itoa(wait))
		common.JSONError(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded",
			map[string]int{"retryAfterSeconds": wait})
	})
}

// UserKey keys limits by the authenticated user, falling back to the client
// IP for anonymous requests.
func UserKey(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		if userID, ok := common.UserID(r.Context()); ok && userID != "" {
			return scope + ":user:" + userID
		}
		return scope + ":ip:" + common.ClientIP(r)
	}
}
