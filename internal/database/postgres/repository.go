package repository

import (
	"context"
	"time"

	"github.com/warcamp/booker/internal/entity"
)

type BookingRepository interface {
	// Create persists a new active booking. The active-cap and exact-time
	// conflict checks run inside the insert transaction; maxActive is the
	// configured per-owner limit.
	Create(ctx context.Context, booking *entity.Booking, maxActive int) error
	GetByID(ctx context.Context, id int64) (*entity.Booking, error)

	// Query operations, ordered by scheduled_time ascending. An empty
	// status means any status.
	GetActive(ctx context.Context) ([]*entity.Booking, error)
	GetByOwner(ctx context.Context, owner string, status entity.BookingStatus) ([]*entity.Booking, error)
	GetByType(ctx context.Context, bookingType entity.BookingType, status entity.BookingStatus) ([]*entity.Booking, error)
	CountActive(ctx context.Context, owner string) (int, error)

	// UpdateStatus moves an active booking into a terminal state. reason
	// is recorded only for cancellations.
	UpdateStatus(ctx context.Context, id int64, status entity.BookingStatus, reason string) error

	// Reminder bookkeeping
	MarkThresholdSent(ctx context.Context, id int64, hours int) error
	MarkNowReminderSent(ctx context.Context, id int64) error
	UpdateLastEvaluated(ctx context.Context, id int64, at time.Time) error

	// GetExpired returns active bookings whose end instant is before the
	// given time.
	GetExpired(ctx context.Context, before time.Time) ([]*entity.Booking, error)
}

type AuditLogRepository interface {
	Insert(ctx context.Context, logEntry *entity.AuditLog) error
	GetRecent(ctx context.Context, limit int) ([]*entity.AuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
