package postgres

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/warcamp/booker/config"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id BIGSERIAL PRIMARY KEY,
			owner VARCHAR(100) NOT NULL,
			booking_type VARCHAR(20) NOT NULL,
			player_name VARCHAR(100) NOT NULL,
			player_id VARCHAR(100) NOT NULL DEFAULT '',
			alliance_name VARCHAR(100) NOT NULL DEFAULT '',
			scheduled_time TIMESTAMPTZ NOT NULL,
			duration_days INTEGER NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			sent_thresholds JSONB NOT NULL DEFAULT '[]',
			now_reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
			cancellation_reason TEXT,
			last_evaluated_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_by VARCHAR(100) NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS audit_logs (
			id BIGSERIAL PRIMARY KEY,
			action_type VARCHAR(50) NOT NULL,
			description TEXT NOT NULL,
			owner VARCHAR(100),
			booking_id BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// One active booking per (owner, instant). Duplicate inserts come
		// back as a unique violation instead of racing a select.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_owner_time_active
			ON bookings(owner, scheduled_time) WHERE status = 'active'`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_owner ON bookings(owner)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_scheduled_time ON bookings(scheduled_time)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %v", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
