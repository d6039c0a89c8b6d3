package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warcamp/booker/internal/entity"
)

type auditLogRepository struct {
	db *sql.DB
}

func NewAuditLogRepository(db *sql.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Insert(ctx context.Context, logEntry *entity.AuditLog) error {
	query := `
		INSERT INTO audit_logs (action_type, description, owner, booking_id, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, 0), $5)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		logEntry.ActionType,
		logEntry.Description,
		logEntry.Owner,
		logEntry.BookingID,
		now,
	).Scan(&logEntry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %v", err)
	}

	logEntry.CreatedAt = now
	return nil
}

func (r *auditLogRepository) GetRecent(ctx context.Context, limit int) ([]*entity.AuditLog, error) {
	query := `
		SELECT id, action_type, description, COALESCE(owner, ''), COALESCE(booking_id, 0), created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %v", err)
	}
	defer rows.Close()

	var logs []*entity.AuditLog
	for rows.Next() {
		var logEntry entity.AuditLog
		err := rows.Scan(
			&logEntry.ID,
			&logEntry.ActionType,
			&logEntry.Description,
			&logEntry.Owner,
			&logEntry.BookingID,
			&logEntry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %v", err)
		}
		logs = append(logs, &logEntry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %v", err)
	}

	return logs, nil
}

func (r *auditLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %v", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %v", err)
	}
	return deleted, nil
}
