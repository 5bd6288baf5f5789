package auth

import (
	"context"

	"postroom/app/models"
)

type contextKey struct{}

// WithUser returns a context carrying the acting user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFrom returns the acting user, or nil for an anonymous request.
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(contextKey{}).(*models.User)
	return user
}
