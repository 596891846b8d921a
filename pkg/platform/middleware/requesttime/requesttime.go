// Package requesttime pins "now" for the lifetime of one HTTP request, so
// a preview evaluates every rule against the same instant.
package requesttime

import (
	"net/http"
	"time"

	"salgsmotor/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
