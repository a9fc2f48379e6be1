package rest

import (
	"context"

	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

type ctxKey string

const userKey ctxKey = "user"

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}
