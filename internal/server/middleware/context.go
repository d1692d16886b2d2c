package middleware

import (
	"context"
)

type contextKey string

const (
	ContextKeyUserID   contextKey = "user_id"
	ContextKeyUsername contextKey = "username"
)

// WithUser stores an authenticated user on ctx.
func WithUser(ctx context.Context, userID int64, username string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, userID)
	return context.WithValue(ctx, ContextKeyUsername, username)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(int64)
	return v, ok
}

func UsernameFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUsername).(string)
	return v, ok
}
