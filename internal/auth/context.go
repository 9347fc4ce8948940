package auth

import "context"

type contextKey string

const didContextKey contextKey = "did"

// WithDID adds an authenticated DID to the context.
func WithDID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, didContextKey, id)
}

// DIDFromContext retrieves the authenticated DID from the context.
// Returns "" if none is present.
func DIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(didContextKey).(string)
	return id
}
