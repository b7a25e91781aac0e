// Package archive keeps a durable history of accepted submissions in
// Postgres. The Redis present-set is truth for the current epoch; the
// archive is what survives rotations.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open creates a Postgres connection with sane defaults and ensures the
// schema exists.
func Open(connString string) (*sql.DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS attendance_records (
			id          UUID PRIMARY KEY,
			student_id  TEXT NOT NULL,
			code        TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_records_student ON attendance_records(student_id);
		CREATE INDEX IF NOT EXISTS idx_records_time    ON attendance_records(recorded_at);
	`)
	return err
}
