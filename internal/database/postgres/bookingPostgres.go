package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warcamp/booker/internal/entity"

	"github.com/lib/pq"
)

const bookingColumns = `
	id, owner, booking_type, player_name, player_id, alliance_name,
	scheduled_time, duration_days, status, sent_thresholds,
	now_reminder_sent, cancellation_reason, last_evaluated_at,
	created_at, updated_at, created_by
`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func scanBooking(row interface{ Scan(...interface{}) error }) (*entity.Booking, error) {
	var booking entity.Booking
	var reason sql.NullString
	err := row.Scan(
		&booking.ID,
		&booking.Owner,
		&booking.Type,
		&booking.PlayerName,
		&booking.PlayerID,
		&booking.AllianceName,
		&booking.ScheduledTime,
		&booking.DurationDays,
		&booking.Status,
		&booking.SentThresholds,
		&booking.NowReminderSent,
		&reason,
		&booking.LastEvaluatedAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	booking.CancellationReason = reason.String
	return &booking, nil
}

// Create inserts a new active booking. Same-owner creates are serialized
// by a transaction-scoped advisory lock on the owner, so the cap check
// cannot miss a phantom row from a concurrent insert; exact-time
// conflicts surface as a unique violation on the partial index.
func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking, maxActive int) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	// Held until commit or rollback.
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, booking.Owner,
	); err != nil {
		return fmt.Errorf("failed to acquire owner lock: %v", err)
	}

	var activeCount int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE owner = $1 AND status = 'active'`,
		booking.Owner,
	).Scan(&activeCount)
	if err != nil {
		return fmt.Errorf("failed to count active bookings: %v", err)
	}

	if activeCount >= maxActive {
		return entity.ErrBookingLimitReached
	}

	query := `
		INSERT INTO bookings (
			owner, booking_type, player_name, player_id, alliance_name,
			scheduled_time, duration_days, status, sent_thresholds,
			now_reminder_sent, last_evaluated_at, created_at, updated_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	now := time.Now()
	err = tx.QueryRowContext(ctx, query,
		booking.Owner,
		booking.Type,
		booking.PlayerName,
		booking.PlayerID,
		booking.AllianceName,
		booking.ScheduledTime,
		booking.DurationDays,
		entity.BookingStatusActive,
		booking.SentThresholds,
		false,
		now,
		now,
		now,
		booking.CreatedBy,
	).Scan(&booking.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return entity.ErrBookingConflict
		}
		return fmt.Errorf("failed to create booking: %v", err)
	}

	booking.Status = entity.BookingStatusActive
	booking.LastEvaluatedAt = now
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %v", err)
	}
	return booking, nil
}

func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*entity.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %v", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %v", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %v", err)
	}

	return bookings, nil
}

func (r *bookingRepository) GetActive(ctx context.Context) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'active'
		ORDER BY scheduled_time ASC`
	return r.queryBookings(ctx, query)
}

func (r *bookingRepository) GetByOwner(ctx context.Context, owner string, status entity.BookingStatus) ([]*entity.Booking, error) {
	if status == "" {
		query := `SELECT ` + bookingColumns + `
			FROM bookings
			WHERE owner = $1
			ORDER BY scheduled_time ASC`
		return r.queryBookings(ctx, query, owner)
	}
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE owner = $1 AND status = $2
		ORDER BY scheduled_time ASC`
	return r.queryBookings(ctx, query, owner, status)
}

func (r *bookingRepository) GetByType(ctx context.Context, bookingType entity.BookingType, status entity.BookingStatus) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_type = $1 AND status = $2
		ORDER BY scheduled_time ASC`
	return r.queryBookings(ctx, query, bookingType, status)
}

func (r *bookingRepository) CountActive(ctx context.Context, owner string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM bookings WHERE owner = $1 AND status = 'active'`
	if err := r.db.QueryRowContext(ctx, query, owner).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %v", err)
	}
	return count, nil
}

// UpdateStatus is guarded by status = 'active' in the UPDATE itself, so a
// booking that already reached a terminal state is never touched.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id int64, status entity.BookingStatus, reason string) error {
	var query string
	var result sql.Result
	var err error

	if status == entity.BookingStatusCancelled {
		query = `UPDATE bookings
			SET status = $1, cancellation_reason = $2, updated_at = $3
			WHERE id = $4 AND status = 'active'`
		result, err = r.db.ExecContext(ctx, query, status, reason, time.Now(), id)
	} else {
		query = `UPDATE bookings
			SET status = $1, updated_at = $2
			WHERE id = $3 AND status = 'active'`
		result, err = r.db.ExecContext(ctx, query, status, time.Now(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update booking status: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		// Distinguish a missing booking from a terminal one.
		var current entity.BookingStatus
		err := r.db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return entity.ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get current booking status: %v", err)
		}
		return entity.ErrInvalidStatusTransition
	}

	return nil
}

// MarkThresholdSent appends hours to the sent set. Read-modify-write runs
// in a transaction with the row locked; the set never loses a member.
func (r *bookingRepository) MarkThresholdSent(ctx context.Context, id int64, hours int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var sent entity.ThresholdSet
	err = tx.QueryRowContext(ctx,
		`SELECT sent_thresholds FROM bookings WHERE id = $1 FOR UPDATE`, id,
	).Scan(&sent)
	if err == sql.ErrNoRows {
		return entity.ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get sent thresholds: %v", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET sent_thresholds = $1, updated_at = $2 WHERE id = $3`,
		sent.Add(hours), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update sent thresholds: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

func (r *bookingRepository) MarkNowReminderSent(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET now_reminder_sent = TRUE, updated_at = $1 WHERE id = $2`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark now reminder sent: %v", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return entity.ErrBookingNotFound
	}
	return nil
}

func (r *bookingRepository) UpdateLastEvaluated(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET last_evaluated_at = $1 WHERE id = $2`, at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update last evaluated time: %v", err)
	}
	return nil
}

func (r *bookingRepository) GetExpired(ctx context.Context, before time.Time) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'active'
		  AND scheduled_time + make_interval(days => duration_days) < $1
		ORDER BY scheduled_time ASC`
	return r.queryBookings(ctx, query, before)
}
