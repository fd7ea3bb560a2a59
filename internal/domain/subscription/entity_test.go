package subscription

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simufolio/pkg/errors"
)

func TestInterval_Duration(t *testing.T) {
	tests := []struct {
		interval Interval
		want     time.Duration
	}{
		{IntervalHourly, time.Hour},
		{IntervalDaily, 24 * time.Hour},
		{IntervalMonthly, 30 * 24 * time.Hour},
		{Interval("weekly"), 0},
		{Interval(""), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.interval.Duration())
		})
	}
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("daily")
	require.NoError(t, err)
	assert.Equal(t, IntervalDaily, iv)

	_, err = ParseInterval("fortnightly")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestNew_Validation(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := New(1, "bitcoin", decimal.Zero, decimal.NewFromInt(100), IntervalDaily, start)
	assert.True(t, errors.Is(err, errors.ErrValidation), "zero amount")

	_, err = New(1, "bitcoin", decimal.NewFromInt(-5), decimal.NewFromInt(100), IntervalDaily, start)
	assert.True(t, errors.Is(err, errors.ErrValidation), "negative amount")

	_, err = New(1, "bitcoin", decimal.NewFromInt(50), decimal.Zero, IntervalDaily, start)
	assert.True(t, errors.Is(err, errors.ErrValidation), "zero price")

	_, err = New(1, "bitcoin", decimal.NewFromInt(50), decimal.NewFromInt(100), Interval("yearly"), start)
	assert.True(t, errors.Is(err, errors.ErrValidation), "unknown interval")
}

func TestNew_FirstNotificationOneIntervalAfterStart(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sub, err := New(42, "ethereum", decimal.NewFromInt(50), decimal.RequireFromString("9.5"), IntervalHourly, start)
	require.NoError(t, err)

	assert.Equal(t, start, sub.LastNotifiedAt)
	assert.False(t, sub.IsDue(start))
	assert.False(t, sub.IsDue(start.Add(59*time.Minute)))
	assert.True(t, sub.IsDue(start.Add(time.Hour)), "due exactly at the threshold")
}

func TestIsDue_MonotonicUntilAdvanced(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	sub, err := New(1, "bitcoin", decimal.NewFromInt(100), decimal.NewFromInt(100), IntervalDaily, start)
	require.NoError(t, err)

	due := start.Add(24 * time.Hour)
	assert.True(t, sub.IsDue(due))
	assert.True(t, sub.IsDue(due.Add(72*time.Hour)), "stays due until notified")

	// Advancing the timestamp resets the window.
	sub.LastNotifiedAt = due
	assert.False(t, sub.IsDue(due))
	assert.False(t, sub.IsDue(due.Add(23*time.Hour)))
	assert.True(t, sub.IsDue(due.Add(24*time.Hour)))
}

func TestIsDue_UnknownIntervalNeverDue(t *testing.T) {
	sub := &Subscription{
		UpdateInterval: Interval("bogus"),
		LastNotifiedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.False(t, sub.IsDue(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
}
