package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds handler execution when no explicit timeout
// is configured.
const DefaultRequestTimeout = 30 * time.Second

const timeoutBody = `{"success":false,"error":"request timeout"}`

// Timeout enforces a deadline on request handlers. The handler's context is
// cancelled at the deadline so in-flight database and queue calls abort too.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		return http.TimeoutHandler(inner, timeout, timeoutBody)
	}
}
