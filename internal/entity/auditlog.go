package entity

import "time"

// Audit action types
const (
	ActionBookingCreated   = "booking_created"
	ActionBookingCompleted = "booking_completed"
	ActionBookingCancelled = "booking_cancelled"
	ActionBookingExpired   = "booking_expired"
	ActionReminderSent     = "reminder_sent"
	ActionNowReminderSent  = "reminder_now"
	ActionLogPrune         = "log_prune"
)

type AuditLog struct {
	ID          int64     `json:"id" db:"id"`
	ActionType  string    `json:"action_type" db:"action_type"`
	Description string    `json:"description" db:"description"`
	Owner       string    `json:"owner,omitempty" db:"owner"`
	BookingID   int64     `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
