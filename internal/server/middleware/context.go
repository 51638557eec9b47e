package middleware

import "context"

type contextKey string

const (
	ContextKeyActorID   contextKey = "actor_id"
	ContextKeyActorRole contextKey = "role"
)

func ActorIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyActorID).(string)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyActorRole).(string)
	return v, ok
}
