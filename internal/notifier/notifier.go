package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/warcamp/booker/internal/entity"

	"github.com/sirupsen/logrus"
)

// Notification is the semantic content of a reminder. Rendering into
// human-readable text is the sink's concern, not the scheduler's.
type Notification struct {
	BookingID     int64              `json:"booking_id"`
	Type          entity.BookingType `json:"type"`
	LeadHours     int                `json:"lead_hours"` // 0 means the booking is due now
	ScheduledTime time.Time          `json:"scheduled_time"`
	PlayerName    string             `json:"player_name"`
	AllianceName  string             `json:"alliance_name"`
}

// Sink delivers a notification to the owner's chat. Implementations are
// best effort; the caller never retries.
type Sink interface {
	Send(ctx context.Context, owner string, n Notification) error
}

// RenderMessage builds the outgoing text for a notification.
func RenderMessage(n Notification) string {
	var head string
	switch {
	case n.LeadHours == 0:
		head = fmt.Sprintf("Your %s booking #%d is due now!", n.Type, n.BookingID)
	case n.LeadHours == 1:
		head = fmt.Sprintf("Reminder: your %s booking #%d is due in 1 hour.", n.Type, n.BookingID)
	default:
		head = fmt.Sprintf("Reminder: your %s booking #%d is due in %d hours.", n.Type, n.BookingID, n.LeadHours)
	}

	body := fmt.Sprintf("\nScheduled: %s\nPlayer: %s",
		n.ScheduledTime.Format("2006-01-02 15:04 MST"), n.PlayerName)
	if n.AllianceName != "" {
		body += fmt.Sprintf("\nAlliance: %s", n.AllianceName)
	}
	return head + body
}

// LogSink logs notifications instead of delivering them. Used when no
// transport is configured so the scheduler can run unconditionally.
type LogSink struct{}

func (LogSink) Send(_ context.Context, owner string, n Notification) error {
	logrus.WithFields(logrus.Fields{
		"owner":      owner,
		"booking_id": n.BookingID,
		"lead_hours": n.LeadHours,
	}).Info("Notification (no transport configured)")
	return nil
}
