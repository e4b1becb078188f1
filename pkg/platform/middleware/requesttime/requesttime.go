// Package requesttime pins a single "now" for the lifetime of a request so
// credential expiry checks and audit timestamps agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"zeropass/pkg/requestcontext"
)

// Middleware captures the clock at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock is Middleware with an injectable clock.
func WithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
