package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"simufolio/pkg/errors"
)

// Interval is the notification cadence chosen when the simulation starts.
type Interval string

const (
	IntervalHourly  Interval = "hourly"
	IntervalDaily   Interval = "daily"
	IntervalMonthly Interval = "monthly"
)

// Duration maps an interval to its sweep threshold.
// Monthly is a 30-day approximation; calendar months are not tracked.
func (i Interval) Duration() time.Duration {
	switch i {
	case IntervalHourly:
		return time.Hour
	case IntervalDaily:
		return 24 * time.Hour
	case IntervalMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether the interval is one of the supported cadences.
func (i Interval) Valid() bool {
	return i.Duration() > 0
}

// ParseInterval converts user-facing text into an Interval.
func ParseInterval(s string) (Interval, error) {
	iv := Interval(s)
	if !iv.Valid() {
		return "", errors.Wrapf(errors.ErrValidation, "unknown interval %q", s)
	}
	return iv, nil
}

// Subscription is one simulated investment: a notional USD amount invested
// in one asset at one start price, with a notification cadence.
// InvestedAmount and InitialPrice are immutable after creation;
// LastNotifiedAt only ever moves forward.
type Subscription struct {
	ID             uuid.UUID       `db:"id"`
	OwnerID        int64           `db:"owner_id"`
	AssetID        string          `db:"asset_id"`
	InvestedAmount decimal.Decimal `db:"invested_amount"`
	StartDate      time.Time       `db:"start_date"`
	UpdateInterval Interval        `db:"update_interval"`
	InitialPrice   decimal.Decimal `db:"initial_price"`
	LastNotifiedAt time.Time       `db:"last_notified_at"`
	CreatedAt      time.Time       `db:"created_at"`
}

// New builds a subscription ready for persistence. LastNotifiedAt starts at
// the start date so the first notification lands one full interval later.
func New(ownerID int64, assetID string, amount, initialPrice decimal.Decimal, interval Interval, startDate time.Time) (*Subscription, error) {
	if !amount.IsPositive() {
		return nil, errors.Wrapf(errors.ErrValidation, "invested amount must be positive, got %s", amount)
	}
	if !initialPrice.IsPositive() {
		return nil, errors.Wrapf(errors.ErrValidation, "initial price must be positive, got %s", initialPrice)
	}
	if !interval.Valid() {
		return nil, errors.Wrapf(errors.ErrValidation, "invalid interval %q", interval)
	}

	return &Subscription{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		AssetID:        assetID,
		InvestedAmount: amount,
		StartDate:      startDate,
		UpdateInterval: interval,
		InitialPrice:   initialPrice,
		LastNotifiedAt: startDate,
		CreatedAt:      startDate,
	}, nil
}

// IsDue reports whether a performance notification is owed at the given time.
// Once true for some now, it stays true for any later now until
// LastNotifiedAt is advanced.
func (s *Subscription) IsDue(now time.Time) bool {
	threshold := s.UpdateInterval.Duration()
	if threshold <= 0 {
		return false
	}
	return now.Sub(s.LastNotifiedAt) >= threshold
}
