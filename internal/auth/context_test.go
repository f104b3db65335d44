package auth

import (
	"context"
	"testing"

	"github.com/jumokuso/crmaudit/internal/domain"
)

func TestActorRoundTrip(t *testing.T) {
	actor := &domain.AuditUser{UID: "u1", DisplayName: "担当者", Email: "staff@example.com"}
	ctx := ContextWithActor(context.Background(), actor)

	got, ok := ActorFromContext(ctx)
	if !ok {
		t.Fatalf("expected an actor in the context")
	}
	if got.UID != "u1" || got.Email != "staff@example.com" {
		t.Errorf("unexpected actor: %+v", got)
	}
}

func TestActorFromEmptyContext(t *testing.T) {
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Errorf("expected no actor in an empty context")
	}
	if _, err := RequireActor(context.Background()); err == nil {
		t.Errorf("RequireActor must fail without an actor")
	}
}

func TestActorWithoutUIDIsRejected(t *testing.T) {
	ctx := ContextWithActor(context.Background(), &domain.AuditUser{Email: "anon@example.com"})
	if _, ok := ActorFromContext(ctx); ok {
		t.Errorf("an actor without a uid must not be accepted")
	}
}
