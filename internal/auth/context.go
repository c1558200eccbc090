package auth

import (
	"context"

	"github.com/rosterly/rosterly/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// userContextKey stores the resolved current user for one request.
const userContextKey contextKey = "current_user"

// ContextWithUser stores the current user in ctx. A nil user marks the
// request as resolved but anonymous.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the current user, or nil when not logged in.
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// IsLoggedIn reports whether the request carries an authenticated user.
func IsLoggedIn(ctx context.Context) bool {
	return UserFromContext(ctx) != nil
}

// UserIDFromContext is a convenience function to get user ID from context.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	if user := UserFromContext(ctx); user != nil {
		return user.ID
	}
	return ""
}
