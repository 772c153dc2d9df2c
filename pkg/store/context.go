// Package store carries the pharmacy store scope through request contexts.
// Every prescription, batch, and dispense event belongs to exactly one store;
// repositories use this scope to filter queries.
package store

import (
	"context"
	"errors"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const storeIDKey contextKey = "store_id"

var (
	// ErrNoStoreInContext is returned when store context is missing
	ErrNoStoreInContext = errors.New("no store in context")
)

// WithStoreID adds the store ID to the context.
// Called by middleware after extracting the store from request headers.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, storeIDKey, storeID)
}

// StoreID extracts the store ID from context.
// Returns ErrNoStoreInContext if it is not present.
func StoreID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(storeIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoStoreInContext
	}
	return id, nil
}

// MustStoreID extracts the store ID from context and panics if not found.
// Use only where a missing store is a programming error.
func MustStoreID(ctx context.Context) string {
	id, err := StoreID(ctx)
	if err != nil {
		panic("store ID not found in context")
	}
	return id
}
