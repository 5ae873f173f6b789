package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	actorIDKey    ctxKey = "actor_id"
	actorEmailKey ctxKey = "actor_email"
	requestIDKey  ctxKey = "request_id"
)

// WithActor stores the acting user's id and email in the context.
func WithActor(ctx context.Context, id uuid.UUID, email string) context.Context {
	ctx = context.WithValue(ctx, actorIDKey, id)
	return context.WithValue(ctx, actorEmailKey, email)
}

// ActorFromCtx extracts the acting user's id and email from the context.
// Returns false if the actor id is missing, nil, or the wrong type.
func ActorFromCtx(ctx context.Context) (uuid.UUID, string, bool) {
	id, ok := ctx.Value(actorIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, "", false
	}
	email, _ := ctx.Value(actorEmailKey).(string)
	return id, email, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
