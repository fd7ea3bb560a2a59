package workers

import (
	"context"
	"sync"
	"time"

	"simufolio/internal/domain/market"
	"simufolio/internal/domain/subscription"
	"simufolio/internal/metrics"
	"simufolio/internal/services/conversation"
	"simufolio/internal/services/portfolio"
	"simufolio/pkg/errors"
)

// Transport delivers notification text to a chat. Implemented by the
// Telegram adapter.
type Transport interface {
	SendNotification(ctx context.Context, chatID int64, text string) error
}

// SweepReport summarizes one notification sweep.
type SweepReport struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
}

// NotificationSweeper walks all subscriptions on each tick, decides which are
// due, computes performance against the live price and delivers updates.
// The recorded last-notified timestamp is the only de-duplication guard:
// it advances strictly after a successful send, so a failed delivery is
// retried naturally on the next sweep.
type NotificationSweeper struct {
	*BaseWorker

	subs      subscription.Store
	gateway   market.Gateway
	transport Transport

	// Serializes sweeps: the scheduler tick and the HTTP trigger share this
	// worker and must never overlap (a due-check-then-update race would
	// double-send).
	sweepMu sync.Mutex
}

// NewNotificationSweeper creates the notification sweep worker
func NewNotificationSweeper(
	subs subscription.Store,
	gateway market.Gateway,
	transport Transport,
	interval time.Duration,
	enabled bool,
) *NotificationSweeper {
	return &NotificationSweeper{
		BaseWorker: NewBaseWorker("notification_sweeper", interval, enabled),
		subs:       subs,
		gateway:    gateway,
		transport:  transport,
	}
}

// Run executes one sweep at the current time
func (w *NotificationSweeper) Run(ctx context.Context) error {
	_, err := w.RunSweep(ctx, time.Now().UTC())
	if err != nil {
		w.RecordError(err)
		return err
	}
	w.RecordRun()
	return nil
}

// RunSweep evaluates every subscription against now and notifies the due
// ones. Per-subscription failures are isolated: one bad record never aborts
// the rest of the pass.
func (w *NotificationSweeper) RunSweep(ctx context.Context, now time.Time) (SweepReport, error) {
	w.sweepMu.Lock()
	defer w.sweepMu.Unlock()

	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	var report SweepReport

	subs, err := w.subs.ListAll(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return report, errors.Wrap(err, "failed to list subscriptions")
	}

	report.Processed = len(subs)

	for _, sub := range subs {
		if ctx.Err() != nil {
			metrics.SweepRuns.WithLabelValues("error").Inc()
			return report, ctx.Err()
		}

		if !sub.IsDue(now) {
			metrics.SweepSubscriptions.WithLabelValues("not_due").Inc()
			report.Skipped++
			continue
		}

		if w.notify(ctx, sub, now) {
			report.Sent++
		} else {
			report.Skipped++
		}
	}

	metrics.SweepRuns.WithLabelValues("success").Inc()

	w.Log().Infow("Sweep completed",
		"processed", report.Processed,
		"sent", report.Sent,
		"skipped", report.Skipped,
		"duration", time.Since(start),
	)

	return report, nil
}

// notify handles one due subscription. Returns true only when the update was
// delivered and the last-notified timestamp advanced.
func (w *NotificationSweeper) notify(ctx context.Context, sub *subscription.Subscription, now time.Time) bool {
	log := w.Log().With("subscription_id", sub.ID, "asset_id", sub.AssetID)

	currentPrice, err := w.gateway.CurrentPrice(ctx, sub.AssetID)
	if err != nil {
		// Retried on the next tick; last_notified_at is untouched.
		log.Warnw("Skipping notification: price unavailable", "error", err)
		metrics.SweepSubscriptions.WithLabelValues("price_unavailable").Inc()
		return false
	}

	perf := portfolio.Evaluate(sub.InvestedAmount, sub.InitialPrice, currentPrice)
	text := conversation.RenderNotification(sub, currentPrice, perf)

	if err := w.transport.SendNotification(ctx, sub.OwnerID, text); err != nil {
		log.Warnw("Notification delivery failed, will retry next sweep", "error", err)
		metrics.SweepSubscriptions.WithLabelValues("send_failed").Inc()
		return false
	}

	// The conditional update is the claim: if another process already
	// advanced the timestamp past now, nothing changes here.
	if err := w.subs.UpdateLastNotified(ctx, sub.ID, now); err != nil {
		log.Errorw("Failed to advance last-notified timestamp", "error", err)
		metrics.SweepSubscriptions.WithLabelValues("claim_failed").Inc()
		return false
	}

	metrics.SweepSubscriptions.WithLabelValues("sent").Inc()
	return true
}
