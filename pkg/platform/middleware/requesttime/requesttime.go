// Package requesttime fixes the request clock and correlation id for every
// operation served over HTTP.
package requesttime

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"trustcore/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request so every
// timestamp written while serving it agrees, and copies chi's request id
// into the context services log from. Mount it after middleware.RequestID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
