// Package auth resolves the caller a request claims to be and authorizes it
// against role and ownership requirements.
package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// callerContextKey is the context key for storing the claimed Caller.
	callerContextKey contextKey = "caller"
)

// Caller is the identity a request claims through its user id header.
// It is unverified until passed through a Gate.
type Caller struct {
	// ID is the claimed user id. Zero means no id was supplied.
	ID int64
	// Malformed is set when a header was supplied but was not a valid id.
	Malformed bool
}

// Anonymous is a Caller that supplied no identity.
var Anonymous = Caller{}

// AsUser returns a Caller claiming the given user id.
func AsUser(id int64) Caller {
	return Caller{ID: id}
}

// Present reports whether the request supplied any identity header.
func (c Caller) Present() bool {
	return c.ID != 0 || c.Malformed
}

// ContextWithCaller adds the claimed Caller to the context.
func ContextWithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, c)
}

// CallerFromContext retrieves the claimed Caller from the context.
// Returns Anonymous if not present.
func CallerFromContext(ctx context.Context) Caller {
	c, ok := ctx.Value(callerContextKey).(Caller)
	if !ok {
		return Anonymous
	}
	return c
}
