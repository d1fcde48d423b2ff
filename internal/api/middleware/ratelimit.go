package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/cleanairpk/cleanair/internal/api/models"
)

// RateLimit is a fixed request budget per client per window.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Rate limit tiers used by the router.
var (
	// TokenIssueLimit guards POST /v1/auth/dev-token.
	TokenIssueLimit = RateLimit{Requests: 10, Window: time.Minute}

	// ComputeLimit guards forecast generation and on-demand alert checks.
	ComputeLimit = RateLimit{Requests: 30, Window: time.Minute}

	// ReadLimit guards reading and profile endpoints.
	ReadLimit = RateLimit{Requests: 100, Window: time.Minute}
)

// RateLimitByIP limits each client address. chi's RealIP must run first.
func RateLimitByIP(limit RateLimit) func(http.Handler) http.Handler {
	return limit.limiter(httprate.KeyByRealIP)
}

// RateLimitByUser limits each authenticated user, falling back to the
// client address when the request carries no user.
func RateLimitByUser(limit RateLimit) func(http.Handler) http.Handler {
	return limit.limiter(func(r *http.Request) (string, error) {
		if userID := GetUserID(r.Context()); userID != "" {
			return "user:" + userID, nil
		}
		return httprate.KeyByRealIP(r)
	})
}

func (l RateLimit) limiter(key httprate.KeyFunc) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Ceil(l.Window.Seconds())))
	return httprate.Limit(
		l.Requests,
		l.Window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			// httprate does not expose the reset time; a full window is the upper bound.
			w.Header().Set("Retry-After", retryAfter)
			writeProblem(w, r, models.KindTooManyRequests, "rate limit exceeded, try again later")
		}),
	)
}
