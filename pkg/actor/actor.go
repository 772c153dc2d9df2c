// Package actor identifies the user performing an action. The identity
// service authenticates upstream; the gateway forwards the resolved actor in
// headers, and this package carries it through contexts for audit trails and
// the pharmacist-only release gate.
package actor

import (
	"context"
	"fmt"
)

// Role names forwarded by the identity service.
const (
	RolePharmacist = "pharmacist"
	RoleTechnician = "technician"
)

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID string `json:"id"`

	// Name is the actor's display name
	Name string `json:"name"`

	// StoreID is the store the actor is operating in
	StoreID string `json:"store_id"`

	// RoleName is the actor's role as resolved by the identity service
	RoleName string `json:"role_name,omitempty"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// IsPharmacist reports whether the actor carries the pharmacist role.
func (a *Actor) IsPharmacist() bool {
	return a != nil && a.RoleName == RolePharmacist
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an Actor representing the system itself.
// Used for scheduled jobs such as expiry scans.
func SystemActor() *Actor {
	return &Actor{
		ID:   "00000000-0000-0000-0000-000000000000",
		Name: "System",
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == "00000000-0000-0000-0000-000000000000"
}
