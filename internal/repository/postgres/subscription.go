package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"simufolio/internal/domain/subscription"
	"simufolio/pkg/errors"
)

// Compile-time check that we implement the interface
var _ subscription.Store = (*SubscriptionRepository)(nil)

// SubscriptionRepository implements subscription.Store using sqlx
type SubscriptionRepository struct {
	db DBTX
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, owner_id, asset_id, invested_amount, start_date,
			update_interval, initial_price, last_notified_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.OwnerID, sub.AssetID, sub.InvestedAmount, sub.StartDate,
		sub.UpdateInterval, sub.InitialPrice, sub.LastNotifiedAt, sub.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(errors.ErrPersistence, err.Error())
	}

	return nil
}

// GetByID retrieves a subscription by ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	var sub subscription.Subscription

	query := `
		SELECT id, owner_id, asset_id, invested_amount, start_date,
			   update_interval, initial_price, last_notified_at, created_at
		FROM subscriptions
		WHERE id = $1`

	err := r.db.GetContext(ctx, &sub, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "subscription %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrPersistence, err.Error())
	}

	return &sub, nil
}

// ListByOwner retrieves all subscriptions for an owner, oldest first
func (r *SubscriptionRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription

	query := `
		SELECT id, owner_id, asset_id, invested_amount, start_date,
			   update_interval, initial_price, last_notified_at, created_at
		FROM subscriptions
		WHERE owner_id = $1
		ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &subs, query, ownerID); err != nil {
		return nil, errors.Wrap(errors.ErrPersistence, err.Error())
	}

	return subs, nil
}

// ListAll retrieves every subscription for the notification sweep
func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription

	query := `
		SELECT id, owner_id, asset_id, invested_amount, start_date,
			   update_interval, initial_price, last_notified_at, created_at
		FROM subscriptions
		ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, errors.Wrap(errors.ErrPersistence, err.Error())
	}

	return subs, nil
}

// UpdateLastNotified advances the last-notified timestamp.
// The WHERE clause makes the claim atomic: a concurrent sweep that already
// advanced the timestamp past `at` leaves this update a no-op.
func (r *SubscriptionRepository) UpdateLastNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE subscriptions
		SET last_notified_at = $2
		WHERE id = $1 AND last_notified_at < $2`

	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return errors.Wrap(errors.ErrPersistence, err.Error())
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.ErrPersistence, err.Error())
	}
	if affected == 0 {
		return errors.Wrapf(errors.ErrNotFound, "subscription %s not updated", id)
	}

	return nil
}

// Delete removes a subscription by ID
func (r *SubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM subscriptions WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return errors.Wrap(errors.ErrPersistence, err.Error())
	}

	return nil
}
