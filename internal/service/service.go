package service

import (
	"context"
	"time"

	"github.com/warcamp/booker/internal/entity"
)

// CreateBookingRequest carries the already-parsed primitive arguments for
// a new reservation. The service validates them again regardless of what
// the transport checked.
type CreateBookingRequest struct {
	Owner         string             `json:"owner" binding:"required,max=100"`
	Type          entity.BookingType `json:"type" binding:"required"`
	PlayerName    string             `json:"player_name" binding:"required,max=100"`
	PlayerID      string             `json:"player_id" binding:"max=100"`
	AllianceName  string             `json:"alliance_name" binding:"max=100"`
	ScheduledTime time.Time          `json:"scheduled_time" binding:"required"`
	DurationDays  int                `json:"duration_days"`
	RequestedBy   string             `json:"requested_by" binding:"max=100"`
}

// BookingLimits is the validation surface for CreateBooking.
type BookingLimits struct {
	MaxActive       int
	HorizonDays     int
	MaxDurationDays int
}

type BookingService interface {
	// Lifecycle operations
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*entity.Booking, error)
	CompleteBooking(ctx context.Context, bookingID int64) error
	CancelBooking(ctx context.Context, bookingID int64, reason string) error
	ExpireBooking(ctx context.Context, bookingID int64) error

	// Read operations
	GetBooking(ctx context.Context, id int64) (*entity.Booking, error)
	GetActiveBookings(ctx context.Context) ([]*entity.Booking, error)
	GetOwnerBookings(ctx context.Context, owner string, status entity.BookingStatus) ([]*entity.Booking, error)
	GetBookingsByType(ctx context.Context, bookingType entity.BookingType, status entity.BookingStatus) ([]*entity.Booking, error)
	CountActive(ctx context.Context, owner string) (int, error)
	GetExpiredBookings(ctx context.Context, before time.Time) ([]*entity.Booking, error)

	// Reminder bookkeeping, used only by the reminder scheduler
	MarkReminderSent(ctx context.Context, bookingID int64, hours int) error
	MarkNowReminderSent(ctx context.Context, bookingID int64) error
	UpdateLastEvaluated(ctx context.Context, bookingID int64, at time.Time) error

	// Audit log
	GetAuditLog(ctx context.Context, limit int) ([]*entity.AuditLog, error)
	PruneAuditLogs(ctx context.Context, before time.Time) (int64, error)
}
