package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines persistence for subscriptions.
type Store interface {
	// Create inserts a new subscription. All-or-nothing: on error no record exists.
	Create(ctx context.Context, sub *Subscription) error

	// GetByID returns a subscription or errors.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// ListByOwner returns the owner's subscriptions, oldest first.
	ListByOwner(ctx context.Context, ownerID int64) ([]*Subscription, error)

	// ListAll returns every subscription (one bounded sweep read).
	ListAll(ctx context.Context) ([]*Subscription, error)

	// UpdateLastNotified advances the last-notified timestamp.
	// The update is conditional: it only applies while the stored value is
	// older than at, so a concurrent sweep cannot rewind or double-claim.
	// Returns errors.ErrNotFound when nothing was updated.
	UpdateLastNotified(ctx context.Context, id uuid.UUID, at time.Time) error

	// Delete removes a subscription.
	Delete(ctx context.Context, id uuid.UUID) error
}
