package entity

import (
	"time"
)

type BookingType string

const (
	BookingTypeBuilding BookingType = "building"
	BookingTypeResearch BookingType = "research"
	BookingTypeTraining BookingType = "training"
)

// Valid reports whether t is one of the known booking types.
func (t BookingType) Valid() bool {
	switch t {
	case BookingTypeBuilding, BookingTypeResearch, BookingTypeTraining:
		return true
	}
	return false
}

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

// Terminal reports whether no further status transitions are allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled || s == BookingStatusExpired
}

type Booking struct {
	ID                 int64         `json:"id" db:"id"`
	Owner              string        `json:"owner" db:"owner"`
	Type               BookingType   `json:"type" db:"booking_type"`
	PlayerName         string        `json:"player_name" db:"player_name"`
	PlayerID           string        `json:"player_id" db:"player_id"`
	AllianceName       string        `json:"alliance_name" db:"alliance_name"`
	ScheduledTime      time.Time     `json:"scheduled_time" db:"scheduled_time"`
	DurationDays       int           `json:"duration_days" db:"duration_days"`
	Status             BookingStatus `json:"status" db:"status"`
	SentThresholds     ThresholdSet  `json:"sent_thresholds" db:"sent_thresholds"`
	NowReminderSent    bool          `json:"now_reminder_sent" db:"now_reminder_sent"`
	CancellationReason string        `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	LastEvaluatedAt    time.Time     `json:"last_evaluated_at" db:"last_evaluated_at"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
	CreatedBy          string        `json:"created_by" db:"created_by"`
}

// EndTime is the instant after which the reservation counts as over.
func (b *Booking) EndTime() time.Time {
	return b.ScheduledTime.AddDate(0, 0, b.DurationDays)
}
