package domain

import "context"

// Actor is the authenticated caller on whose behalf a command runs.
// The ledger core records it on events but never checks permissions.
type Actor struct {
	UserID   string
	FamilyID string
}

// SystemActor is used when no caller identity is attached.
var SystemActor = Actor{UserID: "system"}

type actorContextKey struct{}

// WithActor attaches the caller to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the caller attached to ctx, or SystemActor.
func ActorFromContext(ctx context.Context) Actor {
	if actor, ok := ctx.Value(actorContextKey{}).(Actor); ok {
		return actor
	}
	return SystemActor
}
