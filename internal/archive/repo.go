package archive

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Record is one archived attendance submission.
type Record struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	Code       string    `json:"code"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertRecord writes a new record.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, code, recorded_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, rec.ID, rec.StudentID, rec.Code, rec.RecordedAt)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListRecords returns records newest first, optionally filtered by student.
func (r *Repository) ListRecords(ctx context.Context, studentID string, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, student_id, code, recorded_at, created_at FROM attendance_records`
	args := []any{}
	if studentID != "" {
		query += ` WHERE student_id = $1`
		args = append(args, studentID)
	}
	query += ` ORDER BY recorded_at DESC`
	switch len(args) {
	case 0:
		query += ` LIMIT $1 OFFSET $2`
	default:
		query += ` LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Code, &rec.RecordedAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
