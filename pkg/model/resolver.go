package model

import "context"

// ActorID is a resolved reviewer, bypass, or push-restriction actor. The
// numeric ID addresses REST endpoints, the NodeID the GraphQL ones.
type ActorID struct {
	Type   string // "User" or "Team"
	ID     int64
	NodeID string
}

// Resolver turns human-readable names into provider identifiers. The
// provider client implements it; mapping code receives it injected so
// tests can substitute a fake.
type Resolver interface {
	// ResolveActorIDs resolves "@login" and "@org/team" references.
	ResolveActorIDs(ctx context.Context, names []string) ([]ActorID, error)
	// ResolveRepoIDs resolves repository names within the organization.
	ResolveRepoIDs(ctx context.Context, names []string) ([]int64, error)
}
