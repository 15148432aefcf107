package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS plates_log (
		id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		plate_number    VARCHAR(10) NOT NULL,
		payment_status  TEXT NOT NULL DEFAULT 'UNPAID',
		entry_time      TIMESTAMPTZ NOT NULL,
		payment_time    TIMESTAMPTZ,
		exit_time       TIMESTAMPTZ,
		exit_status     TEXT NOT NULL DEFAULT 'NONE',
		amount_charged  NUMERIC(10,2),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT chk_plates_log_payment_status CHECK (payment_status IN ('UNPAID', 'PAID')),
		CONSTRAINT chk_plates_log_exit_status CHECK (exit_status IN ('NONE', 'NORMAL', 'DENIED'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_plates_log_plate_entry ON plates_log(plate_number, entry_time DESC);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_plates_log_open_plate ON plates_log(plate_number) WHERE exit_time IS NULL;`,
	`CREATE TABLE IF NOT EXISTS lane_events (
		id          UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		lane        TEXT NOT NULL,
		plate       TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		detail      JSONB,
		occurred_at TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_lane_events_plate ON lane_events(plate);`,
	`CREATE INDEX IF NOT EXISTS idx_lane_events_occurred_at ON lane_events(occurred_at);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
