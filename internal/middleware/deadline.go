package middleware

import (
	"net/http"

	"github.com/kevin07696/gateway-reconciler/pkg/resilience"
)

// Deadline bounds every request context by the handler timeout
func Deadline(timeouts *resilience.TimeoutConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := timeouts.HandlerContext(r.Context())
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
