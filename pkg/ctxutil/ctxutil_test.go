package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithActor_And_ActorFromCtx(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ctx := WithActor(context.Background(), id, "dev@example.com")

	gotID, gotEmail, ok := ActorFromCtx(ctx)
	if !ok {
		t.Fatal("expected ok=true for valid actor")
	}
	if gotID != id {
		t.Errorf("actor id: got %s, want %s", gotID, id)
	}
	if gotEmail != "dev@example.com" {
		t.Errorf("actor email: got %q, want %q", gotEmail, "dev@example.com")
	}
}

func TestActorFromCtx_Missing(t *testing.T) {
	t.Parallel()

	_, _, ok := ActorFromCtx(context.Background())
	if ok {
		t.Fatal("expected ok=false for empty context")
	}
}

func TestActorFromCtx_NilUUID(t *testing.T) {
	t.Parallel()

	ctx := WithActor(context.Background(), uuid.Nil, "x@example.com")
	_, _, ok := ActorFromCtx(ctx)
	if ok {
		t.Fatal("expected ok=false for nil UUID")
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "req-123")
	if got := RequestIDFromCtx(ctx); got != "req-123" {
		t.Errorf("request id: got %q, want %q", got, "req-123")
	}

	if got := RequestIDFromCtx(context.Background()); got != "" {
		t.Errorf("request id on empty ctx: got %q, want empty", got)
	}
}
