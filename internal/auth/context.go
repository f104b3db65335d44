package auth

import (
	"context"
	"fmt"

	"github.com/jumokuso/crmaudit/internal/domain"
)

type contextKey string

const actorKey contextKey = "auditActor"

// ContextWithActor returns a new context that carries the authenticated actor.
func ContextWithActor(ctx context.Context, actor *domain.AuditUser) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the authenticated actor from the context, if any.
func ActorFromContext(ctx context.Context) (*domain.AuditUser, bool) {
	if ctx == nil {
		return nil, false
	}
	value := ctx.Value(actorKey)
	if value == nil {
		return nil, false
	}
	actor, ok := value.(*domain.AuditUser)
	if !ok || actor == nil || actor.UID == "" {
		return nil, false
	}
	return actor, true
}

// RequireActor returns the authenticated actor or an error when none is present.
// Mutating audit operations must be attributable to a user.
func RequireActor(ctx context.Context) (*domain.AuditUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("an authenticated actor is required")
	}
	return actor, nil
}
