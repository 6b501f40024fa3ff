package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/github-login/internal/apperror"
	"github.com/sakif/github-login/internal/metrics"
	"github.com/sakif/github-login/internal/ratelimit"
)

// RateLimit rejects clients that exceed the limiter with 429 and a
// Retry-After header. Clients are keyed by IP; put chi's RealIP in front
// when running behind a proxy.
//
// FAIL OPEN:
// If the limiter itself errors (Redis down), the request goes through and
// the failure is logged. An outage of the limiter must not lock every user
// out of signing in.
//
// A nil limiter disables the middleware.
func RateLimit(limiter ratelimit.Limiter, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					slog.String("requestID", chimiddleware.GetReqID(r.Context())),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				m.RateLimited()
				w.Header().Set("Retry-After", strconv.FormatInt(ratelimit.RetryAfterSeconds(retryAfter), 10))
				status, msg := apperror.PlainText(apperror.ErrRateLimited)
				http.Error(w, msg, status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. RealIP leaves a bare IP there,
// the stdlib server leaves host:port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
