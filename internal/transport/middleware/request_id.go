package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/pkg/ctxutil"
)

// RequestIDHeader is the header carrying the request correlation id.
const RequestIDHeader = "X-Request-Id"

// RequestID returns middleware that propagates the incoming request id,
// or generates one, into the context and the response header.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}
			ctx := ctxutil.WithRequestID(r.Context(), id)
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
