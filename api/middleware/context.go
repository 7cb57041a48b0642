package middleware

import (
	"context"

	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

type contextKey string

const (
	ctxCollectorIdentifier contextKey = "collector_identifier"
	ctxRole                contextKey = "actor_role"
)

// CollectorIdentifierFromContext returns the identifier the access token was minted for.
func CollectorIdentifierFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCollectorIdentifier).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.ActorRole); ok {
		return v
	}
	return ""
}

// WithActor seeds the caller identity. Auth uses it; handler tests call it directly.
func WithActor(ctx context.Context, identifier string, role enums.ActorRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxCollectorIdentifier, identifier)
	return context.WithValue(ctx, ctxRole, role)
}
