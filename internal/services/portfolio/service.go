package portfolio

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"simufolio/internal/domain/subscription"
	"simufolio/pkg/errors"
	"simufolio/pkg/logger"
)

// Service provides business logic around subscriptions
type Service struct {
	store subscription.Store
	log   *logger.Logger
}

// NewService creates a new portfolio service
func NewService(store subscription.Store, log *logger.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With("service", "portfolio"),
	}
}

// CreateSubscription validates and persists a new simulated investment
func (s *Service) CreateSubscription(
	ctx context.Context,
	ownerID int64,
	assetID string,
	amount, initialPrice decimal.Decimal,
	interval subscription.Interval,
	startDate time.Time,
) (*subscription.Subscription, error) {
	sub, err := subscription.New(ownerID, assetID, amount, initialPrice, interval, startDate)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, sub); err != nil {
		s.log.Errorw("Failed to create subscription",
			"owner_id", ownerID,
			"asset_id", assetID,
			"error", err,
		)
		return nil, err
	}

	s.log.Infow("Subscription created",
		"subscription_id", sub.ID,
		"owner_id", ownerID,
		"asset_id", assetID,
		"interval", interval,
	)

	return sub, nil
}

// ListSubscriptions returns the owner's subscriptions, oldest first
func (s *Service) ListSubscriptions(ctx context.Context, ownerID int64) ([]*subscription.Subscription, error) {
	subs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		s.log.Errorw("Failed to list subscriptions", "owner_id", ownerID, "error", err)
		return nil, err
	}
	return subs, nil
}

// GetSubscription returns one subscription, enforcing ownership
func (s *Service) GetSubscription(ctx context.Context, ownerID int64, id uuid.UUID) (*subscription.Subscription, error) {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.OwnerID != ownerID {
		return nil, errors.Wrapf(errors.ErrNotFound, "subscription %s not owned by %d", id, ownerID)
	}

	return sub, nil
}

// DeleteSubscription removes one subscription, enforcing ownership
func (s *Service) DeleteSubscription(ctx context.Context, ownerID int64, id uuid.UUID) error {
	if _, err := s.GetSubscription(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Errorw("Failed to delete subscription", "subscription_id", id, "error", err)
		return err
	}

	s.log.Infow("Subscription deleted", "subscription_id", id, "owner_id", ownerID)
	return nil
}
