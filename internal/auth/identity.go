package auth

import (
	"context"

	"excel-insights-api/internal/model"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Role   model.Role
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}
