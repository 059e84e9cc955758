// Package appctx provides request-scoped values extraction.
// The authenticated actor is always threaded through context explicitly,
// never read from ambient global state.
package appctx

import (
	"context"
)

// UserContext contains authenticated actor information for the current call.
type UserContext struct {
	ActorID       string
	Name          string
	RoleName      string // free-text reference data, classified downstream
	BranchID      string
	Authenticated bool
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context, or nil when the caller is
// anonymous.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetActorID returns the actor id from context or empty string.
func GetActorID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.ActorID
	}
	return ""
}

// IsAuthenticated reports whether the context carries an authenticated actor.
func IsAuthenticated(ctx context.Context) bool {
	u := GetUser(ctx)
	return u != nil && u.Authenticated && u.ActorID != ""
}
