package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/warcamp/booker/internal/entity"
	"github.com/warcamp/booker/internal/notifier"
	"github.com/warcamp/booker/pkg/clock"

	"github.com/sirupsen/logrus"
)

// BookingSource is the slice of the booking service the reminder
// scheduler needs.
type BookingSource interface {
	GetActiveBookings(ctx context.Context) ([]*entity.Booking, error)
	MarkReminderSent(ctx context.Context, bookingID int64, hours int) error
	MarkNowReminderSent(ctx context.Context, bookingID int64) error
	UpdateLastEvaluated(ctx context.Context, bookingID int64, at time.Time) error
}

// ReminderScheduler periodically scans active bookings and dispatches a
// reminder for every configured lead-time threshold the booking crossed
// since its previous evaluation. A threshold fires at most once per
// booking; the marker is persisted before the send attempt, so a failed
// delivery is logged and never retried.
type ReminderScheduler struct {
	bookings   BookingSource
	sink       notifier.Sink
	clock      *clock.Clock
	thresholds []int // lead-times in hours, kept sorted largest first
	interval   time.Duration
	nowGrace   time.Duration
}

func NewReminderScheduler(
	bookings BookingSource,
	sink notifier.Sink,
	clk *clock.Clock,
	thresholdsHours []int,
	interval time.Duration,
	nowGrace time.Duration,
) *ReminderScheduler {
	thresholds := append([]int{}, thresholdsHours...)
	sort.Sort(sort.Reverse(sort.IntSlice(thresholds)))

	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if nowGrace <= 0 {
		nowGrace = 5 * time.Minute
	}

	return &ReminderScheduler{
		bookings:   bookings,
		sink:       sink,
		clock:      clk,
		thresholds: thresholds,
		interval:   interval,
		nowGrace:   nowGrace,
	}
}

func (s *ReminderScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logrus.Info("Reminder scheduler started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Reminder scheduler stopped")
			return
		case <-ticker.C:
			s.RunPass(ctx)
		}
	}
}

// RunPass performs one reminder sweep. Errors on a single booking are
// logged and never abort the rest of the pass.
func (s *ReminderScheduler) RunPass(ctx context.Context) {
	bookings, err := s.bookings.GetActiveBookings(ctx)
	if err != nil {
		logrus.Errorf("Failed to fetch active bookings: %v", err)
		return
	}

	sentCount := 0
	for _, booking := range bookings {
		select {
		case <-ctx.Done():
			logrus.Info("Reminder pass interrupted by context cancellation")
			return
		default:
		}

		sentCount += s.processBooking(ctx, booking)
	}

	if sentCount > 0 {
		logrus.Infof("Reminder pass completed: %d notifications sent", sentCount)
	}
}

// processBooking fires the crossed thresholds for one booking and
// returns the number of notifications dispatched.
func (s *ReminderScheduler) processBooking(ctx context.Context, booking *entity.Booking) int {
	now := s.clock.Now()
	remaining := booking.ScheduledTime.Sub(now)
	prevRemaining := booking.ScheduledTime.Sub(booking.LastEvaluatedAt)

	sent := 0
	for _, hours := range s.thresholds {
		lead := time.Duration(hours) * time.Hour

		// Crossed between the previous evaluation and now. Thresholds
		// that were already unreachable when the booking was created
		// never fire, and nothing fires once the instant is past.
		if remaining <= 0 || remaining >= lead || prevRemaining < lead {
			continue
		}
		if booking.SentThresholds.Contains(hours) {
			continue
		}

		if err := s.bookings.MarkReminderSent(ctx, booking.ID, hours); err != nil {
			logrus.WithField("booking_id", booking.ID).
				Errorf("Failed to mark %dh reminder sent: %v", hours, err)
			continue
		}
		booking.SentThresholds = booking.SentThresholds.Add(hours)

		if err := s.sink.Send(ctx, booking.Owner, s.notification(booking, hours)); err != nil {
			// At most once: the threshold stays marked, no retry.
			logrus.WithField("booking_id", booking.ID).
				Errorf("Failed to deliver %dh reminder: %v", hours, err)
		} else {
			sent++
		}
	}

	if !booking.NowReminderSent && remaining <= 0 && remaining >= -s.nowGrace {
		if err := s.bookings.MarkNowReminderSent(ctx, booking.ID); err != nil {
			logrus.WithField("booking_id", booking.ID).
				Errorf("Failed to mark due-now reminder sent: %v", err)
		} else {
			booking.NowReminderSent = true
			if err := s.sink.Send(ctx, booking.Owner, s.notification(booking, 0)); err != nil {
				logrus.WithField("booking_id", booking.ID).
					Errorf("Failed to deliver due-now reminder: %v", err)
			} else {
				sent++
			}
		}
	}

	if err := s.bookings.UpdateLastEvaluated(ctx, booking.ID, now); err != nil {
		logrus.WithField("booking_id", booking.ID).
			Errorf("Failed to update last evaluated time: %v", err)
	}

	return sent
}

func (s *ReminderScheduler) notification(booking *entity.Booking, leadHours int) notifier.Notification {
	return notifier.Notification{
		BookingID:     booking.ID,
		Type:          booking.Type,
		LeadHours:     leadHours,
		ScheduledTime: booking.ScheduledTime,
		PlayerName:    booking.PlayerName,
		AllianceName:  booking.AllianceName,
	}
}
