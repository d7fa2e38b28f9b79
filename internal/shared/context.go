// Package shared holds request-scoped values and helpers used across
// gateway modules.
package shared

import "context"

// Caller identifies the authenticated API client for one request. It is
// carried explicitly in the request context; there is no ambient session
// state.
type Caller struct {
	KeyID    string
	Label    string
	CanWrite bool
}

type callerContextKey struct{}

// ContextWithCaller stores the caller identity in context.
func ContextWithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the caller identity from context, or nil for
// an unauthenticated request.
func CallerFromContext(ctx context.Context) *Caller {
	caller, _ := ctx.Value(callerContextKey{}).(*Caller)
	return caller
}
