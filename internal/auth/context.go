package auth

import (
	"context"

	"github.com/dukerupert/precrastine/internal/model"
)

type contextKey struct{}

// AuthContext is the identity a request acts as.
type AuthContext struct {
	Identity model.Identity
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func IdentityID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.Identity.ID
}

// Identity returns the request's identity, or nil when the request is anonymous.
func Identity(ctx context.Context) *model.Identity {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	id := ac.Identity
	return &id
}
