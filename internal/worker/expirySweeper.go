package worker

import (
	"context"
	"time"

	"github.com/warcamp/booker/internal/entity"
	"github.com/warcamp/booker/pkg/clock"

	"github.com/sirupsen/logrus"
)

// BookingExpirer is the slice of the booking service the sweeper needs.
type BookingExpirer interface {
	GetExpiredBookings(ctx context.Context, before time.Time) ([]*entity.Booking, error)
	ExpireBooking(ctx context.Context, bookingID int64) error
	PruneAuditLogs(ctx context.Context, before time.Time) (int64, error)
}

// ExpirySweeper runs two periodic duties: transitioning overdue active
// bookings to expired, and pruning old audit-log rows. Both filters are
// based on absolute time, so a skipped cycle is compensated on the next
// run.
type ExpirySweeper struct {
	bookings      BookingExpirer
	clock         *clock.Clock
	sweepInterval time.Duration
	pruneInterval time.Duration
	retention     time.Duration
}

func NewExpirySweeper(
	bookings BookingExpirer,
	clk *clock.Clock,
	sweepInterval time.Duration,
	pruneInterval time.Duration,
	retention time.Duration,
) *ExpirySweeper {
	if sweepInterval <= 0 {
		sweepInterval = 6 * time.Hour
	}
	if pruneInterval <= 0 {
		pruneInterval = 24 * time.Hour
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &ExpirySweeper{
		bookings:      bookings,
		clock:         clk,
		sweepInterval: sweepInterval,
		pruneInterval: pruneInterval,
		retention:     retention,
	}
}

func (w *ExpirySweeper) Start(ctx context.Context) {
	sweepTicker := time.NewTicker(w.sweepInterval)
	defer sweepTicker.Stop()
	pruneTicker := time.NewTicker(w.pruneInterval)
	defer pruneTicker.Stop()

	logrus.Info("Expiry sweeper started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Expiry sweeper stopped")
			return
		case <-sweepTicker.C:
			w.SweepExpired(ctx)
		case <-pruneTicker.C:
			w.PruneAuditLogs(ctx)
		}
	}
}

// SweepExpired transitions every active booking whose end instant has
// passed into the expired state. Already-terminal bookings are excluded
// by the query filter, so repeated sweeps are idempotent.
func (w *ExpirySweeper) SweepExpired(ctx context.Context) {
	now := w.clock.Now()

	expired, err := w.bookings.GetExpiredBookings(ctx, now)
	if err != nil {
		logrus.Errorf("Failed to get expired bookings: %v", err)
		return
	}

	if len(expired) == 0 {
		return
	}

	logrus.Infof("Found %d overdue bookings", len(expired))

	successCount := 0
	failedCount := 0
	for _, booking := range expired {
		select {
		case <-ctx.Done():
			logrus.Info("Expiry sweep interrupted by context cancellation")
			return
		default:
		}

		if err := w.bookings.ExpireBooking(ctx, booking.ID); err != nil {
			logrus.Errorf("Failed to expire booking %d: %v", booking.ID, err)
			failedCount++
			continue
		}
		successCount++
	}

	logrus.Infof("Expiry sweep completed: %d expired, %d failed", successCount, failedCount)
}

// PruneAuditLogs deletes audit rows older than the retention window.
func (w *ExpirySweeper) PruneAuditLogs(ctx context.Context) {
	cutoff := w.clock.Now().Add(-w.retention)

	deleted, err := w.bookings.PruneAuditLogs(ctx, cutoff)
	if err != nil {
		logrus.Errorf("Failed to prune audit logs: %v", err)
		return
	}

	if deleted > 0 {
		logrus.Infof("Pruned %d audit log rows older than %s", deleted, cutoff.Format(time.RFC3339))
	}
}
