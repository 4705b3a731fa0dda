// Package authctx carries the authenticated caller identity through the request context.
package authctx

import "context"

type userIDKey struct{}

// WithClerkUserID annotates the context with the verified Clerk user ID.
func WithClerkUserID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey{}, id)
}

// ClerkUserID returns the verified caller identity, or "" when unauthenticated.
func ClerkUserID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(userIDKey{}).(string); ok {
		return v
	}
	return ""
}
