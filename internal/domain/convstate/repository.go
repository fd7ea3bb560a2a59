package convstate

import (
	"context"
	"time"
)

// Store persists at most one conversation state per owner.
type Store interface {
	// Get returns the owner's state or errors.ErrNotFound when absent.
	// Callers treat absence as Idle.
	Get(ctx context.Context, ownerID int64) (*State, error)

	// Upsert overwrites the owner's state. TTL bounds how long an abandoned
	// wizard survives.
	Upsert(ctx context.Context, state *State, ttl time.Duration) error

	// Clear removes the owner's state. Clearing an absent state is not an error.
	Clear(ctx context.Context, ownerID int64) error
}
