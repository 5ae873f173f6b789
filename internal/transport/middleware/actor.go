package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/pkg/ctxutil"
)

// Headers set by the edge gateway after it authenticates the request.
// This service trusts them as-is; requests arriving without them proceed
// anonymously and lose actor attribution on ledger writes.
const (
	ActorIDHeader    = "X-Actor-Id"
	ActorEmailHeader = "X-Actor-Email"
)

// Actor returns middleware that lifts the gateway-forwarded identity
// headers into the request context.
func Actor() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.Header.Get(ActorIDHeader))
			if err != nil || id == uuid.Nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := ctxutil.WithActor(r.Context(), id, r.Header.Get(ActorEmailHeader))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
